package models

import (
	"strings"
	"time"
)

// User is the identity record for a storefront account: credentials, lockout
// state and the profile fields captured at registration.
type User struct {
	ID                 string     `json:"id"`
	UserName           string     `json:"username"`
	NormalizedUserName string     `json:"-"`
	Email              string     `json:"email"`
	NormalizedEmail    string     `json:"-"`
	EmailConfirmed     bool       `json:"email_confirmed"`
	PasswordHash       string     `json:"-"`
	SecurityStamp      string     `json:"-"`
	LockoutEnabled     bool       `json:"-"`
	LockoutEnd         *time.Time `json:"-"`
	AccessFailedCount  int        `json:"-"`
	Name               string     `json:"name"`
	BirthDate          time.Time  `json:"birth_date"`
	Photo              string     `json:"photo,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsLockedOut reports whether sign-in is currently denied for the user.
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Normalize returns the canonical uppercase form used for lookups and uniqueness.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
