package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/gstore/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ConflictError reports which unique columns a rejected insert collided with.
type ConflictError struct {
	UserName bool
	Email    bool
}

func (e *ConflictError) Error() string {
	switch {
	case e.UserName && e.Email:
		return "username and email already exist"
	case e.Email:
		return "email already exists"
	default:
		return "username already exists"
	}
}

// Is lets errors.Is match ConflictError against ErrAlreadyExists.
func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// LockoutState is the sign-in failure bookkeeping persisted per user. A
// recorded failure that reaches the threshold comes back with the counter
// reset to zero and LockoutEnd set.
type LockoutState struct {
	AccessFailedCount int
	LockoutEnd        *time.Time
}

// UserStore captures persistence operations needed by the credential service.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByNormalizedUserName(ctx context.Context, normalized string) (models.User, error)
	FindByNormalizedEmail(ctx context.Context, normalized string) (models.User, error)
	// RecordFailedAccess atomically increments the failure counter. When it
	// reaches maxFailures the counter is reset and lockout_end set to lockoutEnd.
	RecordFailedAccess(ctx context.Context, userID string, maxFailures int, lockoutEnd time.Time) (LockoutState, error)
	ResetAccessFailedCount(ctx context.Context, userID string) error
	UpdatePhoto(ctx context.Context, userID, photo string) error
	AddToRole(ctx context.Context, userID, normalizedRole string) error
	RolesOf(ctx context.Context, userID string) ([]string, error)
	Ping(ctx context.Context) error
}
