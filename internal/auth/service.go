package auth

import (
	"context"
	"errors"
	"time"

	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/users"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	RecordSessionStart(ctx context.Context, username string, at time.Time) error
	RecordSessionEnd(ctx context.Context, username string, at time.Time) error
}

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(plain, encoded string) bool
	VerifyDummy(plain string) bool
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	verifier Verifier
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, verifier Verifier) *Service {
	return &Service{repo: repo, verifier: verifier, now: time.Now}
}

// Authenticate validates username/password credentials. Unknown usernames
// and wrong passwords both yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.verifier.VerifyDummy(password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.verifier.Verify(password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// StartSession records the login time on the user row.
func (s *Service) StartSession(ctx context.Context, username string) (time.Time, error) {
	at := s.now()
	if err := s.repo.RecordSessionStart(ctx, username, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// EndSession records the logout time on the user row.
func (s *Service) EndSession(ctx context.Context, username string) (time.Time, error) {
	at := s.now()
	if err := s.repo.RecordSessionEnd(ctx, username, at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}
