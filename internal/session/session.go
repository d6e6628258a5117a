package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "blog_session"

// ErrNoSession is returned by Read when the request carries no token at all.
var ErrNoSession = errors.New("no session")

// Claims is the content of a session token.
type Claims struct {
	UserID   int  `json:"user_id"`
	Remember bool `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens. Normal sessions slide: every
// Refresh pushes expiry Lifetime into the future. Remembered sessions use
// RememberLifetime and a persistent cookie.
type Manager struct {
	Secret           []byte
	Lifetime         time.Duration
	RememberLifetime time.Duration
	// Secure marks the cookie Secure (set when serving HTTPS).
	Secure bool

	now func() time.Time
}

// NewManager returns a Manager signing with secret.
func NewManager(secret []byte, lifetime, rememberLifetime time.Duration, secure bool) *Manager {
	return &Manager{
		Secret:           secret,
		Lifetime:         lifetime,
		RememberLifetime: rememberLifetime,
		Secure:           secure,
		now:              time.Now,
	}
}

func (m *Manager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func (m *Manager) lifetime(remember bool) time.Duration {
	if remember {
		return m.RememberLifetime
	}
	return m.Lifetime
}

// Token signs a session token for userID.
func (m *Manager) Token(userID int, remember bool) (string, time.Time, error) {
	now := m.clock()
	exp := now.Add(m.lifetime(remember))
	claims := Claims{
		UserID:   userID,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Issue signs a token for userID and sets it as the session cookie.
// It returns the token so API clients can use it as a Bearer token.
func (m *Manager) Issue(w http.ResponseWriter, userID int, remember bool) (string, error) {
	token, exp, err := m.Token(userID, remember)
	if err != nil {
		return "", err
	}
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = exp
		cookie.MaxAge = int(m.RememberLifetime.Seconds())
	}
	http.SetCookie(w, cookie)
	return token, nil
}

// Refresh re-issues the session cookie with a fresh expiry.
func (m *Manager) Refresh(w http.ResponseWriter, c *Claims) error {
	_, err := m.Issue(w, c.UserID, c.Remember)
	return err
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts and verifies the session token from the Authorization header
// (Bearer) or the session cookie. fromCookie reports where it came from.
func (m *Manager) Read(r *http.Request) (claims *Claims, fromCookie bool, err error) {
	var raw string
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	} else if c, cerr := r.Cookie(CookieName); cerr == nil && c.Value != "" {
		raw = c.Value
		fromCookie = true
	}
	if raw == "" {
		return nil, false, ErrNoSession
	}

	claims = &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock),
	)
	if err != nil || !token.Valid {
		return nil, fromCookie, fmt.Errorf("invalid session: %w", err)
	}
	if claims.UserID <= 0 {
		return nil, fromCookie, errors.New("invalid session: missing user")
	}
	return claims, fromCookie, nil
}
