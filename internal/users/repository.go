package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webpage-auth/webpage/internal/shared"
)

const uniqueViolation = "23505"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository provides PostgreSQL backed persistence for the users table.
type Repository struct {
	db dbtx
}

// NewRepository constructs a repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const userColumns = `id, first_name, last_name, username, password, session_start, session_end`

// FindByUsername looks a user up by exact, case-sensitive username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: find by username: %w", err)
	}
	return user, nil
}

// Insert creates a user and returns its id. The UNIQUE constraint on
// username decides collisions, including between concurrent signups.
func (r *Repository) Insert(ctx context.Context, u NewUser) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, username, password) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.FirstName, u.LastName, u.Username, u.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, shared.ErrDuplicateUsername
		}
		return 0, fmt.Errorf("users: insert: %w", err)
	}
	return id, nil
}

// RecordSessionStart stores the login time. Unknown usernames are ignored.
func (r *Repository) RecordSessionStart(ctx context.Context, username string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET session_start = $1 WHERE username = $2`, at.UTC(), username); err != nil {
		return fmt.Errorf("users: record session start: %w", err)
	}
	return nil
}

// RecordSessionEnd stores the logout time. Unknown usernames are ignored.
func (r *Repository) RecordSessionEnd(ctx context.Context, username string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET session_end = $1 WHERE username = $2`, at.UTC(), username); err != nil {
		return fmt.Errorf("users: record session end: %w", err)
	}
	return nil
}

// ListAll returns every user in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: list scan: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.PasswordHash, &u.SessionStart, &u.SessionEnd); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ Store = (*Repository)(nil)
