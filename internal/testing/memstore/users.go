// Package memstore provides an in-memory users.Store for tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/users"
)

// Users keeps rows in insertion order and enforces username uniqueness
// inside Insert, the way the UNIQUE constraint does in PostgreSQL.
type Users struct {
	mu     sync.Mutex
	rows   []users.User
	nextID int64

	// Err, when set, is returned by every operation.
	Err error
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{nextID: 1}
}

// FindByUsername implements users.Store.
func (s *Users) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.rows {
		if s.rows[i].Username == username {
			u := clone(s.rows[i])
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Insert implements users.Store.
func (s *Users) Insert(ctx context.Context, u users.NewUser) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	for _, row := range s.rows {
		if row.Username == u.Username {
			return 0, shared.ErrDuplicateUsername
		}
	}
	id := s.nextID
	s.nextID++
	s.rows = append(s.rows, users.User{
		ID:           id,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	})
	return id, nil
}

// RecordSessionStart implements users.Store.
func (s *Users) RecordSessionStart(ctx context.Context, username string, at time.Time) error {
	return s.update(username, func(u *users.User) { u.SessionStart = &at })
}

// RecordSessionEnd implements users.Store.
func (s *Users) RecordSessionEnd(ctx context.Context, username string, at time.Time) error {
	return s.update(username, func(u *users.User) { u.SessionEnd = &at })
}

// ListAll implements users.Store.
func (s *Users) ListAll(ctx context.Context) ([]users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]users.User, len(s.rows))
	for i, row := range s.rows {
		out[i] = clone(row)
	}
	return out, nil
}

// Len reports the number of stored rows.
func (s *Users) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Users) update(username string, fn func(*users.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i := range s.rows {
		if s.rows[i].Username == username {
			fn(&s.rows[i])
		}
	}
	return nil
}

func clone(u users.User) users.User {
	if u.SessionStart != nil {
		t := *u.SessionStart
		u.SessionStart = &t
	}
	if u.SessionEnd != nil {
		t := *u.SessionEnd
		u.SessionEnd = &t
	}
	return u
}

var _ users.Store = (*Users)(nil)
