package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/blog/internal/session"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type key string

const UserIDKey key = "user_id"

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id, if the request has one.
func GetUserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok && id > 0
}

// Session resolves the session token (cookie or Bearer) into a user id on the
// request context. It never rejects a request: handlers decide whether a
// session is required. Cookie sessions are re-issued on every request so the
// lifetime slides; an invalid cookie is cleared.
func Session(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, fromCookie, err := m.Read(r)
			if err != nil {
				if fromCookie {
					m.Clear(w)
				}
				if !errors.Is(err, session.ErrNoSession) {
					slog.Debug("session rejected", "request_id", chimw.GetReqID(r.Context()), "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if fromCookie {
				if err := m.Refresh(w, claims); err != nil {
					slog.Error("session refresh failed", "request_id", chimw.GetReqID(r.Context()), "error", err)
				}
			}
			noteUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}
