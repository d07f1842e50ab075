package domain

import "time"

// User represents a registered account. PasswordHash is cleared before a
// User leaves the service layer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
