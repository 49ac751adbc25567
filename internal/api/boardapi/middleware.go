package boardapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/BearBump/LoadBoard/internal/services/auth"
	"github.com/BearBump/LoadBoard/internal/services/loads"
)

type identityKey struct{}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{
				Code: "unauthorized", Message: "missing bearer token",
			}})
			return
		}
		id, err := a.auth.ParseToken(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorInfo{
				Code: "unauthorized", Message: "invalid token",
			}})
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identity(r *http.Request) auth.TokenIdentity {
	id, _ := r.Context().Value(identityKey{}).(auth.TokenIdentity)
	return id
}

func actor(r *http.Request) loads.Actor {
	id := identity(r)
	return loads.Actor{ID: id.UserID, Role: id.Role}
}

// rateLimitAuth защищает перебор паролей и спам кодами. Сбой Redis не
// валит вход: лимитер — защита, а не зависимость.
func (a *API) rateLimitAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ok, n, err := a.limiter.Allow(r.Context(), "rl:auth:"+clientIP(r), a.authLimit, a.authWindow)
		if err != nil {
			slog.Warn("rate limiter unavailable", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			slog.Warn("auth rate limit hit", "ip", clientIP(r), "count", n)
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorInfo{
				Code: "rate_limited", Message: "too many attempts, slow down",
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
