package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/blog/internal/middleware"
	"github.com/crucial707/blog/internal/repo"
	"github.com/crucial707/blog/internal/service"
	"github.com/crucial707/blog/internal/session"
	"github.com/crucial707/blog/internal/upload"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	mock     sqlmock.Sqlmock
	auth     *AuthHandler
	posts    *PostHandler
	users    *UserHandler
	sessions *session.Manager
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	authSvc := service.NewAuthService(repo.NewUserRepo(db))
	authSvc.HashCost = bcrypt.MinCost
	images := upload.NewStore(dir, []string{"png", "jpg", "jpeg", "gif"}, 5*1024*1024)
	postSvc := service.NewPostService(repo.NewPostRepo(db), repo.NewTagRepo(db), images)
	sessions := session.NewManager([]byte("test-secret"), 30*time.Minute, 24*time.Hour, false)

	return &fixture{
		mock:     mock,
		auth:     &AuthHandler{Auth: authSvc, Sessions: sessions},
		posts:    &PostHandler{Posts: postSvc, MaxImageBytes: images.Limit()},
		users:    &UserHandler{Auth: authSvc},
		sessions: sessions,
		dir:      dir,
	}
}

func (f *fixture) done(t *testing.T) {
	t.Helper()
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// requestWithChiURLParams returns a request with chi route context and URL params set.
func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	return r
}

// asUser attaches a signed-in user to r the way the session middleware does.
func asUser(r *http.Request, id int) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), id))
}

func asJSON(r *http.Request) *http.Request {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	return r
}

func asForm(r *http.Request) *http.Request {
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}
