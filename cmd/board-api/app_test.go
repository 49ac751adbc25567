package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/LoadBoard/internal/api/boardapi"
	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/BearBump/LoadBoard/internal/realtime"
	"github.com/BearBump/LoadBoard/internal/services/auth"
	"github.com/BearBump/LoadBoard/internal/services/loads"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{}

func (r *fakeRepo) CreateLoad(ctx context.Context, in models.LoadCreateInput, ownerID string) (*models.Load, error) {
	return &models.Load{}, nil
}
func (r *fakeRepo) GetLoadByID(ctx context.Context, id string) (*models.Load, error) {
	return nil, apperr.ErrNotFound
}
func (r *fakeRepo) AcceptLoad(ctx context.Context, loadID, driverID string) (*models.Load, error) {
	return nil, apperr.ErrNotFound
}
func (r *fakeRepo) CompleteLoad(ctx context.Context, loadID string) (*models.Load, error) {
	return nil, apperr.ErrNotFound
}
func (r *fakeRepo) ReleaseLoad(ctx context.Context, loadID string) (*models.Load, error) {
	return nil, apperr.ErrNotFound
}
func (r *fakeRepo) ForceCancelLoad(ctx context.Context, loadID string) (*models.Load, string, error) {
	return nil, "", apperr.ErrNotFound
}
func (r *fakeRepo) ListAvailableLoads(ctx context.Context) ([]*models.Load, error) { return nil, nil }
func (r *fakeRepo) ListUserLoads(ctx context.Context, userID string) ([]*models.Load, error) {
	return nil, nil
}
func (r *fakeRepo) ListAllLoads(ctx context.Context) ([]*models.Load, error) { return nil, nil }
func (r *fakeRepo) UserStats(ctx context.Context, userID string) (models.UserStats, error) {
	return models.UserStats{}, nil
}

type fakeAuthStore struct{}

func (s *fakeAuthStore) CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.UserProfile, error) {
	return &models.UserProfile{}, nil
}
func (s *fakeAuthStore) GetProfileByID(ctx context.Context, id string) (*models.UserProfile, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeAuthStore) GetCredentialsByEmail(ctx context.Context, email string) (*models.Credentials, error) {
	return nil, apperr.ErrNotFound
}
func (s *fakeAuthStore) SetProfileVerified(ctx context.Context, id string) error { return nil }
func (s *fakeAuthStore) UpdateProfile(ctx context.Context, id, fullName, phone string) error {
	return nil
}

type fakeDir struct{}

func (d *fakeDir) GetProfileByID(ctx context.Context, id string) (*models.UserProfile, error) {
	return nil, apperr.ErrNotFound
}
func (d *fakeDir) ListDrivers(ctx context.Context) ([]*models.UserProfile, error) { return nil, nil }
func (d *fakeDir) AdminStats(ctx context.Context) (models.AdminStats, error) {
	return models.AdminStats{}, nil
}

type fakeNotifs struct{}

func (n *fakeNotifs) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	return nil, nil
}
func (n *fakeNotifs) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	return nil
}
func (n *fakeNotifs) ClearNotifications(ctx context.Context, recipientID string) error { return nil }

type noopOTP struct{}

func (noopOTP) Issue(ctx context.Context, email string) (string, error)        { return "000000", nil }
func (noopOTP) Verify(ctx context.Context, email, code string) (bool, error)   { return false, nil }

// stubConsumer отдаёт заготовленные сообщения и ждёт отмены контекста.
type stubConsumer struct {
	msgs []struct {
		topic string
		value []byte
	}
}

func (c *stubConsumer) Consume(ctx context.Context, handler func(topic string, key, value []byte) error) error {
	for _, m := range c.msgs {
		if err := handler(m.topic, nil, m.value); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunBoardAPI_ServesAndBridgesKafka(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	hub := realtime.NewHub()
	defer hub.Close()

	api := boardapi.New(
		loads.New(&fakeRepo{}, nil, nil, "load.changed", 0),
		auth.New(&fakeAuthStore{}, noopOTP{}, "s", time.Hour),
		&fakeNotifs{}, &fakeDir{}, hub, nil, boardapi.Opts{},
	)

	changed, err := json.Marshal(messages.LoadChanged{
		EventID: "l1:posted:1", LoadID: "l1", OwnerID: "o1", Status: models.LoadStatusAvailable,
	})
	require.NoError(t, err)

	cons := &stubConsumer{}
	cons.msgs = append(cons.msgs, struct {
		topic string
		value []byte
	}{"load.changed", changed})

	sub, err := hub.Subscribe(4, realtime.MarketLoads())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runBoardAPI(ctx, boardAPIOpts{
			httpAddr:    "127.0.0.1:0",
			swaggerPath: sw,
			loadTopic:   "load.changed",
			notifTopic:  "notification.created",
			onListen:    func(addr string) { addrCh <- addr },
		}, api, hub, cons)
	}()

	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), "\"swagger\"")

	// Сообщение из Kafka дошло до realtime-подписки.
	select {
	case e := <-sub.C():
		require.Equal(t, "l1", e.Load.LoadID)
	case <-time.After(2 * time.Second):
		t.Fatal("kafka event did not reach the hub")
	}

	// Без токена API закрыт.
	resp, err = http.Get("http://" + addr + "/v1/loads/market")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	}
}
