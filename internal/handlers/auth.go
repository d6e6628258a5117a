package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/crucial707/blog/internal/middleware"
	"github.com/crucial707/blog/internal/service"
	"github.com/crucial707/blog/internal/session"
)

// actorFrom converts the request's session into the identity passed to flows.
func actorFrom(r *http.Request) service.Actor {
	if id, ok := middleware.GetUserID(r.Context()); ok {
		return service.AsUser(id)
	}
	return service.Anonymous
}

// formView describes a form for clients that render it themselves.
type formView struct {
	Form    string            `json:"form"`
	Legend  string            `json:"legend"`
	Fields  []string          `json:"fields"`
	Input   map[string]string `json:"input,omitempty"`
	Flashes []Flash           `json:"flashes"`
}

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Auth     *service.AuthService
	Sessions *session.Manager
}

// ==========================
// Register form
// ==========================
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formView{
		Form:    "register",
		Legend:  "Join Today",
		Fields:  []string{"username", "email", "password", "confirm_password"},
		Flashes: takeFlashes(w, r),
	})
}

// ==========================
// Register
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	f, err := bindRegistration(r)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	user, err := h.Auth.Register(r.Context(), f)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, user)
		return
	}
	addFlash(w, r, flashSuccess, "Account created successfully!")
	redirect(w, r, "/login")
}

// ==========================
// Login form
// ==========================
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formView{
		Form:    "login",
		Legend:  "Log In",
		Fields:  []string{"email", "password", "remember"},
		Flashes: takeFlashes(w, r),
	})
}

// ==========================
// Login (sets the session cookie; API clients also get the token)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f, err := bindLogin(r)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	user, err := h.Auth.Login(r.Context(), f)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}

	token, err := h.Sessions.Issue(w, user.ID, f.Remember)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token": token,
			"user":  user,
		})
		return
	}
	addFlash(w, r, flashSuccess, "Login successful!")
	redirect(w, r, nextPath(r.URL.Query().Get("next")))
}

// nextPath only allows local redirect targets.
func nextPath(next string) string {
	u, err := url.Parse(next)
	if next == "" || err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// ==========================
// Logout
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	addFlash(w, r, flashSuccess, "You have been logged out")
	redirect(w, r, "/login")
}
