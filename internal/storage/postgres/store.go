package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/storage"
	"github.com/hongminglow/gstore/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage.UserStore interface at compile time.
var _ storage.UserStore = (*Store)(nil)

const (
	uniqueViolation = "23505"

	usernameConstraint = "users_normalized_username_key"
	emailConstraint    = "users_normalized_email_key"
)

const selectUser = `
	SELECT id::text, username, normalized_username, email, normalized_email, email_confirmed,
		password_hash, security_stamp, lockout_enabled, lockout_end, access_failed_count,
		name, birth_date, COALESCE(photo, ''), created_at
	FROM users`

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Store provides Postgres-backed persistence for identity records.
type Store struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserStore connects to Postgres and applies pending migrations.
func NewUserStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := newStore(pool)
	s.pool = pool
	return s, nil
}

func newStore(exec pgExecutor) *Store {
	return &Store{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.exec.Ping(ctx)
}

// CreateUser inserts a new identity record. A unique violation is reported as
// a *storage.ConflictError naming the colliding column.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query, args, err := s.builder.Insert("users").
		Columns(
			"id",
			"username",
			"normalized_username",
			"email",
			"normalized_email",
			"email_confirmed",
			"password_hash",
			"security_stamp",
			"lockout_enabled",
			"access_failed_count",
			"name",
			"birth_date",
		).
		Values(
			user.ID,
			user.UserName,
			user.NormalizedUserName,
			user.Email,
			user.NormalizedEmail,
			user.EmailConfirmed,
			user.PasswordHash,
			user.SecurityStamp,
			user.LockoutEnabled,
			user.AccessFailedCount,
			user.Name,
			user.BirthDate,
		).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("build insert user: %w", err)
	}

	if err := s.exec.QueryRow(ctx, query, args...).Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, &storage.ConflictError{
				UserName: pgErr.ConstraintName == usernameConstraint,
				Email:    pgErr.ConstraintName == emailConstraint,
			}
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(s.exec.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

// FindByNormalizedUserName fetches a user by uppercase username.
func (s *Store) FindByNormalizedUserName(ctx context.Context, normalized string) (models.User, error) {
	return scanUser(s.exec.QueryRow(ctx, selectUser+` WHERE normalized_username = $1`, normalized))
}

// FindByNormalizedEmail fetches a user by uppercase email address.
func (s *Store) FindByNormalizedEmail(ctx context.Context, normalized string) (models.User, error) {
	return scanUser(s.exec.QueryRow(ctx, selectUser+` WHERE normalized_email = $1`, normalized))
}

// RecordFailedAccess counts a failed sign-in in a single UPDATE so concurrent
// failures cannot overwrite each other's increments.
func (s *Store) RecordFailedAccess(ctx context.Context, userID string, maxFailures int, lockoutEnd time.Time) (storage.LockoutState, error) {
	query, args, err := s.builder.Update("users").
		Set("access_failed_count", squirrel.Expr("CASE WHEN access_failed_count + 1 >= ? THEN 0 ELSE access_failed_count + 1 END", maxFailures)).
		Set("lockout_end", squirrel.Expr("CASE WHEN access_failed_count + 1 >= ? THEN ?::timestamptz ELSE lockout_end END", maxFailures, lockoutEnd.UTC())).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING access_failed_count, lockout_end").
		ToSql()
	if err != nil {
		return storage.LockoutState{}, fmt.Errorf("build record failed access: %w", err)
	}

	var state storage.LockoutState
	if err := s.exec.QueryRow(ctx, query, args...).Scan(&state.AccessFailedCount, &state.LockoutEnd); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.LockoutState{}, storage.ErrNotFound
		}
		return storage.LockoutState{}, fmt.Errorf("record failed access: %w", err)
	}
	return state, nil
}

// ResetAccessFailedCount clears the failure counter, leaving any lockout in place.
func (s *Store) ResetAccessFailedCount(ctx context.Context, userID string) error {
	query, args, err := s.builder.Update("users").
		Set("access_failed_count", 0).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset failed count: %w", err)
	}
	return s.execOne(ctx, "reset failed count", query, args...)
}

// UpdatePhoto records the stored photo path for a user.
func (s *Store) UpdatePhoto(ctx context.Context, userID, photo string) error {
	query, args, err := s.builder.Update("users").
		Set("photo", photo).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update photo: %w", err)
	}
	return s.execOne(ctx, "update photo", query, args...)
}

// AddToRole grants the named role. Granting a role twice is a no-op.
func (s *Store) AddToRole(ctx context.Context, userID, normalizedRole string) error {
	const query = `
	INSERT INTO user_roles (user_id, role_id)
	SELECT $1, r.id FROM roles r WHERE r.normalized_name = $2
	ON CONFLICT DO NOTHING`
	tag, err := s.exec.Exec(ctx, query, userID, normalizedRole)
	if err != nil {
		return fmt.Errorf("add to role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// either the role is unknown or the membership already exists
		var exists bool
		if err := s.exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE normalized_name = $1)`, normalizedRole).Scan(&exists); err != nil {
			return fmt.Errorf("lookup role: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
	}
	return nil
}

// RolesOf lists the role names granted to a user.
func (s *Store) RolesOf(ctx context.Context, userID string) ([]string, error) {
	const query = `
	SELECT r.name
	FROM roles r
	JOIN user_roles ur ON ur.role_id = r.id
	WHERE ur.user_id = $1
	ORDER BY r.name`
	rows, err := s.exec.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := s.exec.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var lockoutEnd *time.Time
	if err := row.Scan(
		&user.ID,
		&user.UserName,
		&user.NormalizedUserName,
		&user.Email,
		&user.NormalizedEmail,
		&user.EmailConfirmed,
		&user.PasswordHash,
		&user.SecurityStamp,
		&user.LockoutEnabled,
		&lockoutEnd,
		&user.AccessFailedCount,
		&user.Name,
		&user.BirthDate,
		&user.Photo,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.LockoutEnd = lockoutEnd
	return user, nil
}
