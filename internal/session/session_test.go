package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestManager(now time.Time) *Manager {
	m := NewManager([]byte("test-secret"), 30*time.Minute, 30*24*time.Hour, false)
	m.now = func() time.Time { return now }
	return m
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(c)
	return r
}

func TestManager_IssueAndRead(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	rr := httptest.NewRecorder()
	if _, err := m.Issue(rr, 42, false); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if cookies[0].MaxAge != 0 {
		t.Errorf("non-remembered session must be a browser-session cookie, MaxAge=%d", cookies[0].MaxAge)
	}

	claims, fromCookie, err := m.Read(requestWithCookie(cookies[0]))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if claims.UserID != 42 || !fromCookie || claims.Remember {
		t.Errorf("unexpected claims: %+v fromCookie=%v", claims, fromCookie)
	}
}

func TestManager_RememberIsPersistent(t *testing.T) {
	m := newTestManager(time.Now())

	rr := httptest.NewRecorder()
	if _, err := m.Issue(rr, 1, true); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	c := rr.Result().Cookies()[0]
	if c.MaxAge != int((30 * 24 * time.Hour).Seconds()) {
		t.Errorf("remembered cookie MaxAge: got %d", c.MaxAge)
	}
}

func TestManager_ExpiresAfterLifetime(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	token, _, err := m.Token(7, false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	m.now = func() time.Time { return now.Add(31 * time.Minute) }
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	if _, _, err := m.Read(r); err == nil {
		t.Fatal("expected expired session to be rejected")
	}
}

func TestManager_RefreshSlides(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	// 20 minutes in, the session is refreshed; 40 minutes in it must still be valid.
	m.now = func() time.Time { return now.Add(20 * time.Minute) }
	rr := httptest.NewRecorder()
	if err := m.Refresh(rr, &Claims{UserID: 7}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	c := rr.Result().Cookies()[0]

	m.now = func() time.Time { return now.Add(40 * time.Minute) }
	claims, _, err := m.Read(requestWithCookie(c))
	if err != nil {
		t.Fatalf("Read after refresh: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("unexpected user: %d", claims.UserID)
	}
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	m := newTestManager(time.Now())
	other := NewManager([]byte("other-secret"), time.Hour, time.Hour, false)

	token, _, err := other.Token(1, false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	if _, _, err := m.Read(r); err == nil {
		t.Fatal("expected foreign token to be rejected")
	}
}

func TestManager_ReadNoSession(t *testing.T) {
	m := newTestManager(time.Now())
	if _, _, err := m.Read(httptest.NewRequest("GET", "/", nil)); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(time.Now())
	rr := httptest.NewRecorder()
	m.Clear(rr)
	c := rr.Result().Cookies()[0]
	if c.Name != CookieName || c.MaxAge >= 0 {
		t.Errorf("unexpected clear cookie: %+v", c)
	}
}
