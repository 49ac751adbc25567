package messages

import "time"

// Переходы статуса груза (чем вызвано событие).
const (
	LoadTransitionPosted      = "posted"
	LoadTransitionAccepted    = "accepted"
	LoadTransitionCompleted   = "completed"
	LoadTransitionReleased    = "released" // водитель отказался, груз снова на рынке
	LoadTransitionForceCancel = "force_cancelled"
)

// LoadChanged публикуется API после каждого успешного перехода статуса.
// Kafka даёт at-least-once: потребители обязаны переживать дубликаты,
// EventID стабилен для конкретного перехода.
type LoadChanged struct {
	EventID    string `json:"event_id"`
	Transition string `json:"transition"`

	LoadID     string  `json:"load_id"`
	Status     string  `json:"status"`
	PrevStatus string  `json:"prev_status,omitempty"`
	OwnerID    string  `json:"owner_id"`
	DriverID   *string `json:"driver_id,omitempty"`
	ActorID    string  `json:"actor_id"`

	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Price       float64 `json:"price"`

	ChangedAt time.Time `json:"changed_at"`
}

// NotificationCreated публикуется воркером после записи уведомления,
// чтобы API дотолкал его в realtime-подписки получателя.
type NotificationCreated struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}
