package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/blog/internal/config"
	"github.com/crucial707/blog/internal/db"
	"github.com/crucial707/blog/internal/handlers"
	"github.com/crucial707/blog/internal/middleware"
	"github.com/crucial707/blog/internal/repo"
	"github.com/crucial707/blog/internal/scheduler"
	"github.com/crucial707/blog/internal/service"
	"github.com/crucial707/blog/internal/session"
	"github.com/crucial707/blog/internal/upload"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database FIRST
	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Migrate(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	if cfg.UploadSweepCron != "" {
		store := upload.NewStore(cfg.UploadDir, cfg.AllowedExtensions, cfg.MaxUploadBytes)
		sweeper, err := scheduler.Run(cfg.UploadSweepCron, repo.NewPostRepo(database), store)
		if err != nil {
			slog.Error("failed to start upload sweeper", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server LAST
	go func() {
		slog.Info("starting server", "port", cfg.Port, "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func setupLogging(format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// newRouter wires repositories, flows and handlers onto a chi router.
func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	users := repo.NewUserRepo(database)
	posts := repo.NewPostRepo(database)
	tags := repo.NewTagRepo(database)
	images := upload.NewStore(cfg.UploadDir, cfg.AllowedExtensions, cfg.MaxUploadBytes)

	authSvc := service.NewAuthService(users)
	postSvc := service.NewPostService(posts, tags, images)
	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionLifetime, cfg.RememberLifetime, cfg.TLSEnabled())

	authH := &handlers.AuthHandler{Auth: authSvc, Sessions: sessions}
	postH := &handlers.PostHandler{Posts: postSvc, MaxImageBytes: cfg.MaxUploadBytes}
	userH := &handlers.UserHandler{Auth: authSvc}
	uploadH := &handlers.UploadHandler{Store: images}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Session(sessions))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/uploads/{name}", uploadH.Serve)

	// JSON and plain form routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

		r.Get("/", postH.Home)
		r.Get("/tags", postH.Tags)
		r.Get("/users", userH.ListUsers)
		r.Get("/logout", authH.Logout)
		r.Get("/post/{id}", postH.View)
		r.Delete("/post/{id}/delete", postH.Delete)
		r.Post("/post/{id}/delete", postH.Delete)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimiter().Middleware(http.MethodPost))
			r.Get("/register", authH.RegisterForm)
			r.Post("/register", authH.Register)
			r.Get("/login", authH.LoginForm)
			r.Post("/login", authH.Login)
		})
	})

	// Routes accepting an image upload
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBytes(middleware.UploadBodyBytes(cfg.MaxUploadBytes)))

		r.Get("/post/new", postH.NewForm)
		r.Post("/post/new", postH.Create)
		r.Get("/post/{id}/edit", postH.EditForm)
		r.Put("/post/{id}/edit", postH.Update)
		r.Post("/post/{id}/edit", postH.Update)
	})

	return r
}
