package domain

import "time"

// User is the public domain representation of a user account.
// The password digest never leaves the user repository/service boundary.
type User struct {
	ID    UserID
	Email string

	FirstName   string
	LastName    string
	DateOfBirth *string // YYYY-MM-DD; nil means unset

	CreatedAt time.Time
}
