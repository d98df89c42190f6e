// Package identity implements the credential service behind the account
// workflow: password sign-in with lockout tracking, user creation under a
// password policy, and role membership.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/storage"
)

// Outcome enumerates the results of a password sign-in.
type Outcome int

const (
	Rejected Outcome = iota
	Success
	LockedOut
	NotAllowed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case LockedOut:
		return "locked_out"
	case NotAllowed:
		return "not_allowed"
	default:
		return "rejected"
	}
}

// SignInResult carries the outcome of PasswordSignIn. User and Roles are only
// populated on Success.
type SignInResult struct {
	Outcome Outcome
	User    models.User
	Roles   []string
}

// Options tunes the lockout and confirmation rules.
type Options struct {
	MaxFailedAttempts     int
	LockoutDuration       time.Duration
	RequireConfirmedEmail bool
	Password              PasswordPolicy
}

// DefaultOptions locks an account for five minutes after five failures.
func DefaultOptions() Options {
	return Options{
		MaxFailedAttempts:     5,
		LockoutDuration:       5 * time.Minute,
		RequireConfirmedEmail: true,
		Password:              DefaultPasswordPolicy(),
	}
}

// Service is the credential service. It is safe for concurrent use; all state
// lives in the store.
type Service struct {
	store     storage.UserStore
	opts      Options
	now       func() time.Time
	dummyHash string
}

// NewService constructs the credential service over store.
func NewService(store storage.UserStore, opts Options) (*Service, error) {
	if opts.MaxFailedAttempts <= 0 {
		opts.MaxFailedAttempts = DefaultOptions().MaxFailedAttempts
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = DefaultOptions().LockoutDuration
	}
	// compared against for unknown users so both paths cost one bcrypt round
	dummy, err := HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{store: store, opts: opts, now: time.Now, dummyHash: dummy}, nil
}

// FindByEmail resolves a user by email, case-insensitively.
func (s *Service) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return s.store.FindByNormalizedEmail(ctx, models.Normalize(email))
}

// FindByID resolves a user by identifier.
func (s *Service) FindByID(ctx context.Context, id string) (models.User, error) {
	return s.store.FindByID(ctx, id)
}

// PasswordSignIn checks a username/password pair. A locked-out account is
// reported before an unconfirmed one, and both before the password is
// verified. With lockoutOnFailure set, each failure counts towards the lockout
// threshold; the attempt that reaches it already reports LockedOut.
func (s *Service) PasswordSignIn(ctx context.Context, username, password string, lockoutOnFailure bool) (SignInResult, error) {
	user, err := s.store.FindByNormalizedUserName(ctx, models.Normalize(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_, _ = VerifyPassword(s.dummyHash, password)
			return SignInResult{Outcome: Rejected}, nil
		}
		return SignInResult{}, fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	if user.IsLockedOut(now) {
		return SignInResult{Outcome: LockedOut}, nil
	}
	if s.opts.RequireConfirmedEmail && !user.EmailConfirmed {
		return SignInResult{Outcome: NotAllowed}, nil
	}

	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return SignInResult{}, fmt.Errorf("verify password: %w", err)
	}
	if ok {
		if user.AccessFailedCount > 0 {
			if err := s.store.ResetAccessFailedCount(ctx, user.ID); err != nil {
				return SignInResult{}, fmt.Errorf("reset failed count: %w", err)
			}
			user.AccessFailedCount = 0
		}
		roles, err := s.store.RolesOf(ctx, user.ID)
		if err != nil {
			return SignInResult{}, fmt.Errorf("load roles: %w", err)
		}
		return SignInResult{Outcome: Success, User: user, Roles: roles}, nil
	}

	if lockoutOnFailure && user.LockoutEnabled {
		state, err := s.store.RecordFailedAccess(ctx, user.ID, s.opts.MaxFailedAttempts, now.Add(s.opts.LockoutDuration))
		if err != nil {
			return SignInResult{}, fmt.Errorf("record failed attempt: %w", err)
		}
		if state.AccessFailedCount == 0 && state.LockoutEnd != nil && state.LockoutEnd.After(now) {
			return SignInResult{Outcome: LockedOut}, nil
		}
		return SignInResult{Outcome: Rejected}, nil
	}
	return SignInResult{Outcome: Rejected}, nil
}

// CreateUser validates and stores a new user with the given password. Policy
// and uniqueness problems are returned in the Result; err is reserved for
// infrastructure failures. Nothing is stored unless the Result succeeded.
func (s *Service) CreateUser(ctx context.Context, user models.User, password string) (Result, error) {
	var errs []Error
	if strings.TrimSpace(user.UserName) == "" {
		errs = append(errs, Error{Code: CodeInvalidUserName, Description: "Username is invalid."})
	}
	if !IsValidEmail(user.Email) {
		errs = append(errs, Error{Code: CodeInvalidEmail, Description: fmt.Sprintf("Email '%s' is invalid.", user.Email)})
	}

	user.NormalizedUserName = models.Normalize(user.UserName)
	user.NormalizedEmail = models.Normalize(user.Email)

	dup, err := s.duplicates(ctx, user)
	if err != nil {
		return Result{}, err
	}
	errs = append(errs, dup...)
	errs = append(errs, s.opts.Password.Validate(password, user.Email, user.Name)...)
	if len(errs) > 0 {
		return failed(errs...), nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	user.LockoutEnabled = true
	user.AccessFailedCount = 0

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			errs := conflictErrors(user, conflict)
			if len(errs) == 0 {
				errs = []Error{{Code: CodeDefaultError, Description: "An unknown failure has occurred."}}
			}
			return failed(errs...), nil
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}
	return Result{User: created}, nil
}

// AddToRole grants role to user.
func (s *Service) AddToRole(ctx context.Context, user models.User, role string) error {
	if err := s.store.AddToRole(ctx, user.ID, models.Normalize(role)); err != nil {
		return fmt.Errorf("add %s to role %s: %w", user.ID, role, err)
	}
	return nil
}

// RolesOf lists the roles held by userID.
func (s *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.store.RolesOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roles of %s: %w", userID, err)
	}
	return roles, nil
}

// UpdatePhoto persists the photo path of an existing user.
func (s *Service) UpdatePhoto(ctx context.Context, userID, path string) error {
	if err := s.store.UpdatePhoto(ctx, userID, path); err != nil {
		return fmt.Errorf("update photo: %w", err)
	}
	return nil
}

func (s *Service) duplicates(ctx context.Context, user models.User) ([]Error, error) {
	conflict := &storage.ConflictError{}
	if user.NormalizedUserName != "" {
		if _, err := s.store.FindByNormalizedUserName(ctx, user.NormalizedUserName); err == nil {
			conflict.UserName = true
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
	}
	if user.NormalizedEmail != "" {
		if _, err := s.store.FindByNormalizedEmail(ctx, user.NormalizedEmail); err == nil {
			conflict.Email = true
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}
	return conflictErrors(user, conflict), nil
}

func conflictErrors(user models.User, conflict *storage.ConflictError) []Error {
	var errs []Error
	if conflict.UserName {
		errs = append(errs, Error{Code: CodeDuplicateUserName, Description: fmt.Sprintf("Username '%s' is already taken.", user.UserName)})
	}
	if conflict.Email {
		errs = append(errs, Error{Code: CodeDuplicateEmail, Description: fmt.Sprintf("Email '%s' is already taken.", user.Email)})
	}
	return errs
}
