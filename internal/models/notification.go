package models

import "time"

// Типы уведомлений (фиксированный набор, см. маппинг переходов в services/notifier).
const (
	NotificationTypeAccept   = "accept"
	NotificationTypeComplete = "complete"
	NotificationTypeNewLoad  = "new_load"
	NotificationTypeSystem   = "system"
)

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotificationCreateInput — одна строка для записи. DedupeKey делает
// повторную доставку того же события записью-ноопом (уникальный индекс).
type NotificationCreateInput struct {
	RecipientID string
	Title       string
	Message     string
	Type        string
	DedupeKey   string
}
