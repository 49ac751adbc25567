package pgboard

import (
	"context"
	"time"

	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// InsertNotification пишет одно уведомление. При совпадении dedupe_key
// возвращает (nil, nil): событие уже доставлено, второй раз не рендерим.
func (s *Storage) InsertNotification(ctx context.Context, in models.NotificationCreateInput) (*models.Notification, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
INSERT INTO notifications (id, recipient_id, title, message, type, read, dedupe_key, created_at)
VALUES ($1,$2,$3,$4,$5,FALSE,$6,$7)
ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
RETURNING id, recipient_id, title, message, type, read, created_at
`, uuid.NewString(), in.RecipientID, in.Title, in.Message, in.Type, nullable(in.DedupeKey), now)

	var n models.Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "insert notification")
	}
	return &n, nil
}

// InsertNotificationsBatch — одна пачка на всех получателей (broadcast),
// не N последовательных раундтрипов. Возвращает реально вставленные строки.
func (s *Storage) InsertNotificationsBatch(ctx context.Context, ins []models.NotificationCreateInput) ([]*models.Notification, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()

	b := &pgx.Batch{}
	for _, in := range ins {
		b.Queue(`
INSERT INTO notifications (id, recipient_id, title, message, type, read, dedupe_key, created_at)
VALUES ($1,$2,$3,$4,$5,FALSE,$6,$7)
ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
RETURNING id, recipient_id, title, message, type, read, created_at
`, uuid.NewString(), in.RecipientID, in.Title, in.Message, in.Type, nullable(in.DedupeKey), now)
	}

	br := s.db.SendBatch(ctx, b)
	defer func() { _ = br.Close() }()

	out := make([]*models.Notification, 0, len(ins))
	for range ins {
		var n models.Notification
		err := br.QueryRow().Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // дубликат по dedupe_key
		}
		if err != nil {
			return nil, errors.Wrap(err, "batch insert notification")
		}
		out = append(out, &n)
	}
	return out, nil
}

// ListNotifications — в порядке создания, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT id, recipient_id, title, message, type, read, created_at
FROM notifications
WHERE recipient_id = $1
ORDER BY created_at DESC
LIMIT $2
`, recipientID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select notifications")
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, &n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// MarkNotificationRead — единственная разрешённая мутация уведомления.
func (s *Storage) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	_, err := s.db.Exec(ctx, `
UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2
`, id, recipientID)
	return errors.Wrap(err, "mark notification read")
}

// ClearNotifications — явный "очистить всё" пользователя.
func (s *Storage) ClearNotifications(ctx context.Context, recipientID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE recipient_id = $1`, recipientID)
	return errors.Wrap(err, "clear notifications")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
