package realtime

import (
	"sync"

	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/pkg/errors"
)

type EventKind string

const (
	EventKindLoad         EventKind = "load"
	EventKindNotification EventKind = "notification"
)

// Event — один элемент ленты изменений. Доставка at-least-once
// (источник — Kafka), потребители сверяют своё состояние идемпотентно.
type Event struct {
	Kind         EventKind                     `json:"kind"`
	Load         *messages.LoadChanged         `json:"load,omitempty"`
	Notification *messages.NotificationCreated `json:"notification,omitempty"`
}

// Filter решает, относится ли событие к подписке.
type Filter func(Event) bool

// ParticipantLoads — грузы, где пользователь владелец или назначенный
// водитель (дашборды обеих ролей).
func ParticipantLoads(userID string) Filter {
	return func(e Event) bool {
		if e.Kind != EventKindLoad || e.Load == nil {
			return false
		}
		if e.Load.OwnerID == userID {
			return true
		}
		return e.Load.DriverID != nil && *e.Load.DriverID == userID
	}
}

// MarketLoads — "радар" открытого рынка: груз стал или перестал быть
// доступным (вид водителя перезапускает свой фильтр по событию).
func MarketLoads() Filter {
	return func(e Event) bool {
		if e.Kind != EventKindLoad || e.Load == nil {
			return false
		}
		return e.Load.Status == models.LoadStatusAvailable || e.Load.PrevStatus == models.LoadStatusAvailable
	}
}

// RecipientNotifications — личные уведомления.
func RecipientNotifications(userID string) Filter {
	return func(e Event) bool {
		if e.Kind != EventKindNotification || e.Notification == nil {
			return false
		}
		return e.Notification.RecipientID == userID
	}
}

func Any(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Состояния подписки.
const (
	StateUnsubscribed = "unsubscribed"
	StateSubscribing  = "subscribing"
	StateActive       = "active"
)

// Subscription — независимо отменяемая подписка. Cancel синхронный:
// после возврата ни одной доставки больше не будет, канал закрыт.
type Subscription struct {
	id     uint64
	hub    *Hub
	filter Filter
	ch     chan Event

	mu    sync.Mutex
	state string
}

func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(st string) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Subscription) Cancel() {
	s.hub.cancel(s)
}

// Hub раздаёт события по активным подпискам. Медленный потребитель не
// блокирует остальных: при переполненном буфере событие для него
// отбрасывается (клиент обязан уметь перечитать список).
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]*Subscription{}}
}

func (h *Hub) Subscribe(buffer int, filter Filter) (*Subscription, error) {
	if filter == nil {
		return nil, errors.New("filter is required")
	}
	if buffer <= 0 {
		buffer = 16
	}

	sub := &Subscription{
		hub:    h,
		filter: filter,
		ch:     make(chan Event, buffer),
		state:  StateSubscribing,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.setState(StateUnsubscribed)
		return nil, errors.New("hub is closed")
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()

	sub.setState(StateActive)
	return sub, nil
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

func (h *Hub) cancel(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub.id]
	if ok {
		delete(h.subs, sub.id)
	}
	h.mu.Unlock()
	if ok {
		// Канал закрываем вне RLock-секций быть не может: Publish держит
		// RLock на время отправки, поэтому после delete+Unlock отправок
		// в этот канал уже нет.
		close(sub.ch)
	}
	sub.setState(StateUnsubscribed)
}

// Close отменяет все подписки; новые Subscribe будут отклонены.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[uint64]*Subscription{}
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
		sub.setState(StateUnsubscribed)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
