package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/webpage-auth/webpage/internal/shared"
)

// Store defines data access methods for users.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, u NewUser) (int64, error)
	RecordSessionStart(ctx context.Context, username string, at time.Time) error
	RecordSessionEnd(ctx context.Context, username string, at time.Time) error
	ListAll(ctx context.Context) ([]User, error)
}

// Hasher turns a plaintext password into a one-way hash.
type Hasher interface {
	Hash(plain string) (string, error)
}

// SignupInput is the submitted signup form. Values are stored as given;
// whitespace-only fields count as missing.
type SignupInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Username  string `validate:"required"`
	Password  string `validate:"required"`
}

// Service handles user business logic.
type Service struct {
	store     Store
	hasher    Hasher
	validator *validator.Validate
	listGroup singleflight.Group
}

// NewService builds Service instance.
func NewService(store Store, hasher Hasher) *Service {
	return &Service{store: store, hasher: hasher, validator: validator.New()}
}

// Signup validates the input, hashes the password and inserts the user.
// Returns shared.ErrValidation when a field is missing and
// shared.ErrDuplicateUsername when the username is taken.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	check := in
	check.FirstName = strings.TrimSpace(in.FirstName)
	check.LastName = strings.TrimSpace(in.LastName)
	check.Username = strings.TrimSpace(in.Username)
	if err := s.validator.Struct(check); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	id, err := s.store.Insert(ctx, NewUser{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	return &User{ID: id, FirstName: in.FirstName, LastName: in.LastName, Username: in.Username, PasswordHash: hash}, nil
}

// ListUsers returns all users. Concurrent callers share one query, which
// runs detached from any single caller's cancellation; each caller still
// returns early when its own ctx ends.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	detached := context.WithoutCancel(ctx)
	resultChan := s.listGroup.DoChan("all", func() (interface{}, error) {
		return s.store.ListAll(detached)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-resultChan:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	list := res.Val.([]User)
	out := make([]User, len(list))
	copy(out, list)
	return out, nil
}
