package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/BearBump/LoadBoard/config"
	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/BearBump/LoadBoard/internal/services/notifier"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inserted []models.NotificationCreateInput
}

func (f *fakeStore) InsertNotification(ctx context.Context, in models.NotificationCreateInput) (*models.Notification, error) {
	out, err := f.InsertNotificationsBatch(ctx, []models.NotificationCreateInput{in})
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeStore) InsertNotificationsBatch(ctx context.Context, ins []models.NotificationCreateInput) ([]*models.Notification, error) {
	f.inserted = append(f.inserted, ins...)
	out := make([]*models.Notification, 0, len(ins))
	for _, in := range ins {
		out = append(out, &models.Notification{ID: "n", RecipientID: in.RecipientID, Type: in.Type})
	}
	return out, nil
}

func (f *fakeStore) ListDriverIDs(ctx context.Context) ([]string, error) {
	return []string{"d1", "d2"}, nil
}

type noopProducer struct{}

func (noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

type stubConsumer struct {
	values [][]byte
}

func (c *stubConsumer) Consume(ctx context.Context, handler func(topic string, key, value []byte) error) error {
	for _, v := range c.values {
		if err := handler("load.changed", nil, v); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *stubConsumer) Close() error { return nil }

func TestRunBoardWorker_ContextCanceled(t *testing.T) {
	calledClose := false
	f := workerFactories{
		newStorage: func(cfg *config.Config) (notifier.Store, func(), error) {
			return &fakeStore{}, func() { calledClose = true }, nil
		},
		newProducer: func(cfg *config.Config) notifier.Producer { return noopProducer{} },
		newConsumer: func(cfg *config.Config, topic, group string) loadChangedConsumer {
			return &stubConsumer{}
		},
	}

	cfg := &config.Config{
		Kafka:     config.KafkaConfig{LoadChangedTopicName: "t"},
		LoadBoard: config.LoadBoardConfig{WorkerHTTPAddr: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunBoardWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestRunBoardWorker_ProcessesEventsAndServesStats(t *testing.T) {
	st := &fakeStore{}
	changed, err := json.Marshal(messages.LoadChanged{
		EventID:    "l1:posted:1",
		Transition: messages.LoadTransitionPosted,
		LoadID:     "l1",
		Status:     models.LoadStatusAvailable,
		OwnerID:    "o1",
		Origin:     "Riyadh",
		Price:      1000,
	})
	require.NoError(t, err)

	addrCh := make(chan string, 1)
	f := workerFactories{
		newStorage: func(cfg *config.Config) (notifier.Store, func(), error) {
			return st, nil, nil
		},
		newProducer: func(cfg *config.Config) notifier.Producer { return noopProducer{} },
		newConsumer: func(cfg *config.Config, topic, group string) loadChangedConsumer {
			return &stubConsumer{values: [][]byte{changed}}
		},
		onHTTPListen: func(addr string) { addrCh <- addr },
	}

	cfg := &config.Config{
		LoadBoard: config.LoadBoardConfig{WorkerHTTPAddr: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- RunBoardWorker(ctx, cfg, f)
	}()

	addr := <-addrCh

	// Broadcast сработал: по строке на каждого водителя.
	require.Eventually(t, func() bool { return len(st.inserted) == 2 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), `"totalEvents":1`)

	resp, err = http.Get("http://" + addr + "/config")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), "board-worker")

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting worker to stop")
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	}
}
