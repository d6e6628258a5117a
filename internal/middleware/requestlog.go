package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// requestInfo is filled in by inner middleware and read back once the request completes.
type requestInfo struct {
	userID int
}

const requestInfoKey key = "request_info"

// noteUserID records the session user for the request log.
func noteUserID(ctx context.Context, userID int) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = userID
	}
}

// loggedUserID returns the user id from the context or, for outer middleware,
// the one noted by Session further down the chain.
func loggedUserID(ctx context.Context) (int, bool) {
	if id, ok := GetUserID(ctx); ok {
		return id, true
	}
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok && info.userID > 0 {
		return info.userID, true
	}
	return 0, false
}

// RequestLog logs each request with request_id, method, path, status, duration and size.
// Mount it after RequestID; Session may run later and the user id is still logged.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		r = r.WithContext(context.WithValue(r.Context(), requestInfoKey, &requestInfo{}))
		next.ServeHTTP(wrap, r)

		attrs := []any{
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrap.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"size", wrap.size,
		}
		if userID, ok := loggedUserID(r.Context()); ok {
			attrs = append(attrs, "user_id", userID)
		}
		level := slog.LevelInfo
		if wrap.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "request", attrs...)
	})
}
