// Package boardapi — HTTP-поверхность маркетплейса: auth, грузы,
// уведомления, админка и websocket для живых обновлений.
package boardapi

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/BearBump/LoadBoard/internal/realtime"
	"github.com/BearBump/LoadBoard/internal/services/auth"
	"github.com/BearBump/LoadBoard/internal/services/loads"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type NotificationStore interface {
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID string) error
	ClearNotifications(ctx context.Context, recipientID string) error
}

// Directory — чтение профилей для админки и контактных ссылок.
type Directory interface {
	GetProfileByID(ctx context.Context, id string) (*models.UserProfile, error)
	ListDrivers(ctx context.Context) ([]*models.UserProfile, error)
	AdminStats(ctx context.Context) (models.AdminStats, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Opts struct {
	// Лимит на auth-эндпоинты: попыток с одного IP за окно.
	AuthRateLimit  int64
	AuthRateWindow time.Duration
}

type API struct {
	loads  *loads.Service
	auth   *auth.Service
	notifs NotificationStore
	dir    Directory
	hub    *realtime.Hub

	limiter    Limiter
	authLimit  int64
	authWindow time.Duration

	upgrader websocket.Upgrader
}

func New(ls *loads.Service, as *auth.Service, ns NotificationStore, dir Directory, hub *realtime.Hub, limiter Limiter, opts Opts) *API {
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 20
	}
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = time.Minute
	}
	return &API{
		loads:      ls,
		auth:       as,
		notifs:     ns,
		dir:        dir,
		hub:        hub,
		limiter:    limiter,
		authLimit:  opts.AuthRateLimit,
		authWindow: opts.AuthRateWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Браузерные клиенты ходят с разных origin, auth — по токену.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(a.rateLimitAuth)
			r.Post("/auth/signup", a.handleSignUp)
			r.Post("/auth/verify", a.handleVerifyEmail)
			r.Post("/auth/resend", a.handleResendOTP)
			r.Post("/auth/signin", a.handleSignIn)
			r.Post("/auth/admin/signin", a.handleAdminSignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/profile", a.handleGetProfile)
			r.Put("/profile", a.handleUpdateProfile)
			r.Get("/profile/stats", a.handleUserStats)

			r.Post("/loads", a.handlePostLoad)
			r.Get("/loads/market", a.handleListMarket)
			r.Get("/loads/my", a.handleListMyLoads)
			r.Get("/loads/{id}", a.handleGetLoad)
			r.Get("/loads/{id}/contact", a.handleContactLink)
			r.Post("/loads/{id}/accept", a.handleAcceptLoad)
			r.Post("/loads/{id}/complete", a.handleCompleteLoad)
			r.Post("/loads/{id}/cancel", a.handleCancelLoad)
			r.Post("/loads/{id}/force-cancel", a.handleForceCancel)

			r.Get("/notifications", a.handleListNotifications)
			r.Post("/notifications/{id}/read", a.handleMarkNotificationRead)
			r.Delete("/notifications", a.handleClearNotifications)

			r.Get("/admin/stats", a.handleAdminStats)
			r.Get("/admin/loads", a.handleListAllLoads)
			r.Get("/admin/drivers", a.handleListDrivers)
		})

		// Upgrade сам проверяет токен: браузер не умеет слать заголовки в WS.
		r.Get("/ws", a.handleWS)
	})

	return r
}
