package loads

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/LoadBoard/internal/access"
	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/broker/messages"
	"github.com/BearBump/LoadBoard/internal/cache"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateLoad(ctx context.Context, in models.LoadCreateInput, ownerID string) (*models.Load, error)
	GetLoadByID(ctx context.Context, id string) (*models.Load, error)
	AcceptLoad(ctx context.Context, loadID, driverID string) (*models.Load, error)
	CompleteLoad(ctx context.Context, loadID string) (*models.Load, error)
	ReleaseLoad(ctx context.Context, loadID string) (*models.Load, error)
	ForceCancelLoad(ctx context.Context, loadID string) (*models.Load, string, error)
	ListAvailableLoads(ctx context.Context) ([]*models.Load, error)
	ListUserLoads(ctx context.Context, userID string) ([]*models.Load, error)
	ListAllLoads(ctx context.Context) ([]*models.Load, error)
	UserStats(ctx context.Context, userID string) (models.UserStats, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Actor — аутентифицированный инициатор операции. ID берём из сессии,
// роли доверяем так же, как и ID.
type Actor struct {
	ID   string
	Role string
}

// Service — контроллер жизненного цикла груза. Все мутации статуса
// проходят только через него; сам статус меняется условными апдейтами
// в хранилище (никаких in-process локов, см. Repository).
type Service struct {
	repo     Repository
	producer Producer
	cache    cache.BytesCache
	topic    string
	cacheTTL time.Duration
}

func New(repo Repository, producer Producer, c cache.BytesCache, topic string, cacheTTL time.Duration) *Service {
	return &Service{repo: repo, producer: producer, cache: c, topic: topic, cacheTTL: cacheTTL}
}

func (s *Service) PostLoad(ctx context.Context, actor Actor, in models.LoadCreateInput) (*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpPostLoad) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot post loads", actor.Role)
	}
	if in.Origin == "" {
		return nil, apperr.Validationf("origin is required")
	}
	if in.Destination == "" {
		return nil, apperr.Validationf("destination is required")
	}
	if in.WeightKG <= 0 {
		return nil, apperr.Validationf("weightKg must be positive")
	}
	if in.Price <= 0 {
		return nil, apperr.Validationf("price must be positive")
	}

	l, err := s.repo.CreateLoad(ctx, in, actor.ID)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, l, messages.LoadTransitionPosted, "", actor.ID)
	s.cacheSet(ctx, l)
	return l, nil
}

func (s *Service) AcceptLoad(ctx context.Context, actor Actor, loadID string) (*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpAcceptLoad) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot accept loads", actor.Role)
	}
	if loadID == "" {
		return nil, apperr.Validationf("loadId is required")
	}

	l, err := s.repo.AcceptLoad(ctx, loadID, actor.ID)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, l, messages.LoadTransitionAccepted, models.LoadStatusAvailable, actor.ID)
	s.cacheSet(ctx, l)
	return l, nil
}

func (s *Service) CompleteLoad(ctx context.Context, actor Actor, loadID string) (*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpCompleteLoad) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot complete loads", actor.Role)
	}

	// Завершить может владелец или назначенный водитель. Проверка до
	// мутации; авторитетна всё равно CAS-ветка в хранилище.
	cur, err := s.repo.GetLoadByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(cur, actor.ID) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "user %s is not a party of load %s", actor.ID, loadID)
	}

	l, err := s.repo.CompleteLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, l, messages.LoadTransitionCompleted, models.LoadStatusInProgress, actor.ID)
	s.cacheSet(ctx, l)
	return l, nil
}

// CancelLoad — отказ водителя от взятого груза: груз возвращается на
// открытый рынок, назначение снимается.
func (s *Service) CancelLoad(ctx context.Context, actor Actor, loadID string) (*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpCancelLoad) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot cancel loads", actor.Role)
	}

	cur, err := s.repo.GetLoadByID(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if cur.DriverID == nil || *cur.DriverID != actor.ID {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "user %s is not the assigned driver of load %s", actor.ID, loadID)
	}

	l, err := s.repo.ReleaseLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, l, messages.LoadTransitionReleased, models.LoadStatusInProgress, actor.ID)
	s.cacheSet(ctx, l)
	return l, nil
}

// ForceCancel — безусловная админская отмена из любого нетерминального
// статуса. Подтверждение оператора — забота вызывающей стороны.
func (s *Service) ForceCancel(ctx context.Context, actor Actor, loadID string) (*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpForceCancel) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot force-cancel loads", actor.Role)
	}

	l, prev, err := s.repo.ForceCancelLoad(ctx, loadID)
	if err != nil {
		return nil, err
	}

	s.publishChange(ctx, l, messages.LoadTransitionForceCancel, prev, actor.ID)
	s.cacheSet(ctx, l)
	return l, nil
}

func (s *Service) GetLoad(ctx context.Context, id string) (*models.Load, error) {
	if s.cache != nil && s.cacheTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(id)); err == nil && ok {
			var l models.Load
			if json.Unmarshal(b, &l) == nil {
				return &l, nil
			}
		}
	}

	l, err := s.repo.GetLoadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, l)
	return l, nil
}

func (s *Service) ListMarket(ctx context.Context, actor Actor) ([]*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpViewMarket) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot browse the market", actor.Role)
	}
	return s.repo.ListAvailableLoads(ctx)
}

func (s *Service) ListMyLoads(ctx context.Context, actor Actor) ([]*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpViewOwnLoads) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot list own loads", actor.Role)
	}
	return s.repo.ListUserLoads(ctx, actor.ID)
}

func (s *Service) ListAllLoads(ctx context.Context, actor Actor) ([]*models.Load, error) {
	if !access.Allowed(actor.Role, access.OpViewAllLoads) {
		return nil, errors.Wrapf(apperr.ErrPermissionDenied, "role %q cannot list all loads", actor.Role)
	}
	return s.repo.ListAllLoads(ctx)
}

func (s *Service) UserStats(ctx context.Context, actor Actor) (models.UserStats, error) {
	return s.repo.UserStats(ctx, actor.ID)
}

// publishChange — лучшее усилие: факт перехода уже зафиксирован в БД,
// сбой публикации не откатывает и не всплывает, только логируется.
func (s *Service) publishChange(ctx context.Context, l *models.Load, transition, prevStatus, actorID string) {
	if s.producer == nil {
		return
	}
	msg := messages.LoadChanged{
		EventID:     fmt.Sprintf("%s:%s:%d", l.ID, transition, l.UpdatedAt.UnixNano()),
		Transition:  transition,
		LoadID:      l.ID,
		Status:      l.Status,
		PrevStatus:  prevStatus,
		OwnerID:     l.OwnerID,
		DriverID:    l.DriverID,
		ActorID:     actorID,
		Origin:      l.Origin,
		Destination: l.Destination,
		Price:       l.Price,
		ChangedAt:   l.UpdatedAt,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal load.changed", "load_id", l.ID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(l.ID), b); err != nil {
		slog.Error("publish load.changed", "load_id", l.ID, "transition", transition, "error", err.Error())
	}
}

func (s *Service) cacheSet(ctx context.Context, l *models.Load) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	b, _ := json.Marshal(l)
	_ = s.cache.Set(ctx, currentKey(l.ID), b, s.cacheTTL)
}

func isParticipant(l *models.Load, userID string) bool {
	if l.OwnerID == userID {
		return true
	}
	return l.DriverID != nil && *l.DriverID == userID
}

func currentKey(id string) string {
	return fmt.Sprintf("load:%s:current", id)
}
