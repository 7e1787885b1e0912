package users

import "time"

// User is a registered account. SessionStart and SessionEnd hold the most
// recent login and logout times and are nil until the first of each.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	PasswordHash string
	SessionStart *time.Time
	SessionEnd   *time.Time
}

// NewUser carries the fields written at signup.
type NewUser struct {
	FirstName    string
	LastName     string
	Username     string
	PasswordHash string
}
