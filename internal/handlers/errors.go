package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crucial707/blog/internal/service"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error", optional "fields" for field-level
// details and optional "input" echoing what the client submitted.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields, input map[string]string, status int) {
	out := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	if len(input) > 0 {
		out["input"] = input
	}
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// wantsJSON reports whether the client is an API client rather than a browser
// following redirects.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		isJSONBody(r) ||
		strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// redirect sends a browser to location after a form submission.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// ==========================
// Error mapping
// ==========================

// respondError maps a flow error to a response. Browsers are redirected with
// a flash for session and ownership errors; everything else is JSON. input is
// echoed back for validation and conflict errors.
func respondError(w http.ResponseWriter, r *http.Request, err error, input map[string]string) {
	var verr *service.ValidationError
	var cerr *service.ConflictError
	var mbe *http.MaxBytesError

	switch {
	case errors.Is(err, errBadBody):
		JSONError(w, "invalid request body", http.StatusBadRequest)

	case errors.As(err, &mbe):
		JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)

	case errors.As(err, &verr):
		JSONValidationError(w, "validation failed", verr.Fields, input, http.StatusBadRequest)

	case errors.As(err, &cerr):
		rerender(w, http.StatusConflict, cerr.Message, input)

	case errors.Is(err, service.ErrAuthRequired):
		if wantsJSON(r) {
			JSONError(w, msgLoginFirst, http.StatusUnauthorized)
			return
		}
		addFlash(w, r, flashDanger, msgLoginFirst)
		redirect(w, r, "/login")

	case errors.Is(err, service.ErrForbidden):
		if wantsJSON(r) {
			JSONError(w, msgForbidden, http.StatusForbidden)
			return
		}
		addFlash(w, r, flashDanger, msgForbidden)
		redirect(w, r, "/")

	case errors.Is(err, service.ErrNotFound):
		JSONError(w, "post not found", http.StatusNotFound)

	case errors.Is(err, service.ErrInvalidCredentials):
		rerender(w, http.StatusUnauthorized, msgLoginFailed, input)

	default:
		slog.Error("request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

// rerender answers a failed form submission with the message as a flash on
// the same view and the prior input.
func rerender(w http.ResponseWriter, status int, message string, input map[string]string) {
	out := map[string]interface{}{
		"error":   message,
		"flashes": []Flash{{Category: flashDanger, Message: message}},
	}
	if len(input) > 0 {
		out["input"] = input
	}
	writeJSON(w, status, out)
}

const (
	msgLoginFirst  = "Please login first"
	msgForbidden   = "You can only modify your own posts"
	msgLoginFailed = "Login failed. Check email and password"
)
