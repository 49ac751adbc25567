package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/pkg/errors"
)

type Store interface {
	InsertNotification(ctx context.Context, in models.NotificationCreateInput) (*models.Notification, error)
	InsertNotificationsBatch(ctx context.Context, ins []models.NotificationCreateInput) ([]*models.Notification, error)
	ListDriverIDs(ctx context.Context) ([]string, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service превращает события load.changed в строки уведомлений.
// Kafka даёт at-least-once, запись идемпотентна по dedupe_key: повторное
// событие не рождает второе уведомление. Маппинг переходов фиксирован:
//
//	posted    -> все водители, new_load
//	accepted  -> владелец груза, accept
//	completed -> владелец груза, complete
//	released / force_cancelled -> владелец груза, system
type Service struct {
	store    Store
	producer Producer
	topic    string

	startedAtUnixNano int64
	lastEventUnixNano atomic.Int64
	totalEvents       atomic.Int64
	totalInserted     atomic.Int64
	totalDuplicates   atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func New(store Store, producer Producer, topic string) *Service {
	return &Service{
		store:             store,
		producer:          producer,
		topic:             topic,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

type Stats struct {
	StartedAt       time.Time  `json:"startedAt"`
	LastEventAt     *time.Time `json:"lastEventAt,omitempty"`
	TotalEvents     int64      `json:"totalEvents"`
	TotalInserted   int64      `json:"totalInserted"`
	TotalDuplicates int64      `json:"totalDuplicates"`
	TotalErrors     int64      `json:"totalErrors"`
	LastError       string     `json:"lastError,omitempty"`
}

func (s *Service) Stats() Stats {
	st := Stats{
		StartedAt:       time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalEvents:     s.totalEvents.Load(),
		TotalInserted:   s.totalInserted.Load(),
		TotalDuplicates: s.totalDuplicates.Load(),
		TotalErrors:     s.totalErrors.Load(),
	}
	if n := s.lastEventUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastEventAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// ApplyLoadChanged обрабатывает одно событие. Ошибка означает "не
// коммитить оффсет": событие придёт снова, dedupe_key сделает повтор
// безопасным.
func (s *Service) ApplyLoadChanged(ctx context.Context, msg messages.LoadChanged) error {
	s.totalEvents.Add(1)
	s.lastEventUnixNano.Store(time.Now().UTC().UnixNano())

	if msg.EventID == "" || msg.LoadID == "" {
		return errors.New("event_id and load_id are required")
	}

	ins, err := s.planNotifications(ctx, msg)
	if err != nil {
		s.noteError(err)
		return err
	}
	if len(ins) == 0 {
		return nil
	}

	inserted, err := s.store.InsertNotificationsBatch(ctx, ins)
	if err != nil {
		s.noteError(err)
		return errors.Wrap(err, "insert notifications")
	}
	s.totalInserted.Add(int64(len(inserted)))
	s.totalDuplicates.Add(int64(len(ins) - len(inserted)))

	for _, n := range inserted {
		s.publishCreated(ctx, n)
	}
	return nil
}

func (s *Service) planNotifications(ctx context.Context, msg messages.LoadChanged) ([]models.NotificationCreateInput, error) {
	switch msg.Transition {
	case messages.LoadTransitionPosted:
		// Живой радар: каждому водителю по строке, одной пачкой.
		drivers, err := s.store.ListDriverIDs(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list drivers")
		}
		ins := make([]models.NotificationCreateInput, 0, len(drivers))
		for _, id := range drivers {
			ins = append(ins, models.NotificationCreateInput{
				RecipientID: id,
				Title:       "New load available",
				Message:     fmt.Sprintf("New load from %s for %.0f SAR", msg.Origin, msg.Price),
				Type:        models.NotificationTypeNewLoad,
				DedupeKey:   dedupeKey(msg.EventID, id),
			})
		}
		return ins, nil

	case messages.LoadTransitionAccepted:
		return []models.NotificationCreateInput{{
			RecipientID: msg.OwnerID,
			Title:       "Your load was accepted",
			Message:     "The carrier is on the way to you.",
			Type:        models.NotificationTypeAccept,
			DedupeKey:   dedupeKey(msg.EventID, msg.OwnerID),
		}}, nil

	case messages.LoadTransitionCompleted:
		return []models.NotificationCreateInput{{
			RecipientID: msg.OwnerID,
			Title:       "Load delivered",
			Message:     "The load was delivered successfully. Thank you.",
			Type:        models.NotificationTypeComplete,
			DedupeKey:   dedupeKey(msg.EventID, msg.OwnerID),
		}}, nil

	case messages.LoadTransitionReleased:
		return []models.NotificationCreateInput{{
			RecipientID: msg.OwnerID,
			Title:       "Load back on the market",
			Message:     fmt.Sprintf("The driver released your load %s → %s. It is open for carriers again.", msg.Origin, msg.Destination),
			Type:        models.NotificationTypeSystem,
			DedupeKey:   dedupeKey(msg.EventID, msg.OwnerID),
		}}, nil

	case messages.LoadTransitionForceCancel:
		return []models.NotificationCreateInput{{
			RecipientID: msg.OwnerID,
			Title:       "Load cancelled",
			Message:     "Your load was cancelled by the operations team.",
			Type:        models.NotificationTypeSystem,
			DedupeKey:   dedupeKey(msg.EventID, msg.OwnerID),
		}}, nil
	}

	slog.Warn("unknown load transition", "transition", msg.Transition, "load_id", msg.LoadID)
	return nil, nil
}

// publishCreated — лучшее усилие: уведомление уже записано, сбой пуша в
// realtime-канал его не отменяет.
func (s *Service) publishCreated(ctx context.Context, n *models.Notification) {
	if s.producer == nil {
		return
	}
	b, err := json.Marshal(messages.NotificationCreated{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		slog.Error("marshal notification.created", "notification_id", n.ID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(n.RecipientID), b); err != nil {
		s.noteError(err)
		slog.Error("publish notification.created", "notification_id", n.ID, "error", err.Error())
	}
}

func (s *Service) noteError(err error) {
	s.totalErrors.Add(1)
	s.lastErrorMu.Lock()
	s.lastError = err.Error()
	s.lastErrorMu.Unlock()
}

func dedupeKey(eventID, recipientID string) string {
	return eventID + ":" + recipientID
}
