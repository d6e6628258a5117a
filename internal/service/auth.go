package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crucial707/blog/internal/forms"
	"github.com/crucial707/blog/internal/metrics"
	"github.com/crucial707/blog/internal/models"
	"github.com/crucial707/blog/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// AuthService registers users and checks credentials.
type AuthService struct {
	Users UserStore
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{Users: users}
}

func (s *AuthService) cost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

// Register validates f and stores a new user with a bcrypt password hash.
// A taken username or email yields *ConflictError and nothing is stored.
func (s *AuthService) Register(ctx context.Context, f forms.Registration) (*models.User, error) {
	f.Normalize()
	if fields := forms.Validate(f); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.Create(ctx, f.Username, f.Email, string(hash))
	if errors.Is(err, repo.ErrConflict) {
		return nil, &ConflictError{Message: "Username or email already exists"}
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login returns the user for valid credentials. An unknown email and a wrong
// password both give ErrInvalidCredentials, and both pay for one bcrypt
// comparison.
func (s *AuthService) Login(ctx context.Context, f forms.Login) (*models.User, error) {
	f.Normalize()
	if fields := forms.Validate(f); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	user, err := s.Users.GetByEmail(ctx, f.Email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash := s.dummy()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(f.Password)) != nil || user == nil {
		metrics.IncLoginAttempts("failure")
		return nil, ErrInvalidCredentials
	}

	metrics.IncLoginAttempts("success")
	return user, nil
}

// ListUsers returns all users ordered by id. It requires a session.
func (s *AuthService) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if !actor.Authenticated() {
		return nil, ErrAuthRequired
	}
	return s.Users.List(ctx)
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost())
	})
	return s.dummyHash
}
