package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/storage"
	"github.com/hongminglow/gstore/internal/storage/memstore"
)

const strongPassword = "Secr3t!pass"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, opts Options) (*Service, *memstore.Store, *clock) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, opts)
	require.NoError(t, err)
	c := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = c.now
	return svc, store, c
}

func newUser(email string) models.User {
	return models.User{
		UserName:       email,
		Email:          email,
		EmailConfirmed: true,
		Name:           "Ana",
		BirthDate:      time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func mustCreate(t *testing.T, svc *Service, user models.User) models.User {
	t.Helper()
	res, err := svc.CreateUser(context.Background(), user, strongPassword)
	require.NoError(t, err)
	require.True(t, res.Succeeded(), "unexpected errors: %v", res.Codes())
	return res.User
}

func TestCreateUser_NormalizesAndHashes(t *testing.T) {
	svc, store, _ := newTestService(t, DefaultOptions())

	created := mustCreate(t, svc, newUser("Ana.Souza@Example.com"))

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ANA.SOUZA@EXAMPLE.COM", created.NormalizedEmail)
	assert.Equal(t, "ANA.SOUZA@EXAMPLE.COM", created.NormalizedUserName)
	assert.NotEqual(t, strongPassword, created.PasswordHash)
	assert.True(t, created.LockoutEnabled)
	assert.Equal(t, 1, store.Len())
}

func TestCreateUser_DuplicateEmailLeavesNoPartialRecord(t *testing.T) {
	svc, store, _ := newTestService(t, DefaultOptions())
	mustCreate(t, svc, newUser("ana@example.com"))

	res, err := svc.CreateUser(context.Background(), newUser("ANA@example.com"), strongPassword)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, []string{CodeDuplicateUserName, CodeDuplicateEmail}, res.Codes())
	assert.Equal(t, 1, store.Len())
}

func TestCreateUser_PasswordPolicy(t *testing.T) {
	svc, store, _ := newTestService(t, DefaultOptions())

	res, err := svc.CreateUser(context.Background(), newUser("ana@example.com"), "abc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		CodePasswordTooShort,
		CodePasswordRequiresNonAlphanumeric,
		CodePasswordRequiresDigit,
		CodePasswordRequiresUpper,
	}, res.Codes())
	assert.Zero(t, store.Len())
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())

	res, err := svc.CreateUser(context.Background(), newUser("not-an-email"), strongPassword)
	require.NoError(t, err)
	assert.Contains(t, res.Codes(), CodeInvalidEmail)
}

type conflictStore struct {
	*memstore.Store
}

func (c conflictStore) CreateUser(context.Context, models.User) (models.User, error) {
	return models.User{}, &storage.ConflictError{Email: true}
}

func TestCreateUser_ConflictRaceIsTranslated(t *testing.T) {
	svc, err := NewService(conflictStore{memstore.New()}, DefaultOptions())
	require.NoError(t, err)

	res, err := svc.CreateUser(context.Background(), newUser("ana@example.com"), strongPassword)
	require.NoError(t, err)
	assert.Equal(t, []string{CodeDuplicateEmail}, res.Codes())
}

func TestPasswordSignIn_Success(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())
	created := mustCreate(t, svc, newUser("ana@example.com"))
	require.NoError(t, svc.AddToRole(context.Background(), created, models.CustomerRole))

	res, err := svc.PasswordSignIn(context.Background(), "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, created.ID, res.User.ID)
	assert.Equal(t, []string{models.CustomerRole}, res.Roles)
}

func TestPasswordSignIn_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())

	res, err := svc.PasswordSignIn(context.Background(), "ghost", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Outcome)
}

func TestPasswordSignIn_LocksOutAfterMaxFailures(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFailedAttempts = 3
	svc, _, c := newTestService(t, opts)
	mustCreate(t, svc, newUser("ana@example.com"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.PasswordSignIn(ctx, "ana@example.com", "wrong", true)
		require.NoError(t, err)
		assert.Equal(t, Rejected, res.Outcome, "attempt %d", i+1)
	}

	res, err := svc.PasswordSignIn(ctx, "ana@example.com", "wrong", true)
	require.NoError(t, err)
	assert.Equal(t, LockedOut, res.Outcome)

	// even the right password is refused while locked out
	res, err = svc.PasswordSignIn(ctx, "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, LockedOut, res.Outcome)

	c.t = c.t.Add(opts.LockoutDuration + time.Second)
	res, err = svc.PasswordSignIn(ctx, "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
}

func TestPasswordSignIn_ConcurrentFailuresLockOut(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFailedAttempts = 3
	svc, store, c := newTestService(t, opts)
	created := mustCreate(t, svc, newUser("ana@example.com"))
	ctx := context.Background()

	const attempts = 10
	outcomes := make([]Outcome, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.PasswordSignIn(ctx, "ana@example.com", "wrong", true)
			assert.NoError(t, err)
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	assert.Contains(t, outcomes, LockedOut)
	stored, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLockedOut(c.t), "account must be locked after %d concurrent failures", attempts)

	res, err := svc.PasswordSignIn(ctx, "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, LockedOut, res.Outcome)
}

func TestPasswordSignIn_SuccessResetsFailureCount(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFailedAttempts = 3
	svc, store, _ := newTestService(t, opts)
	created := mustCreate(t, svc, newUser("ana@example.com"))
	ctx := context.Background()

	_, err := svc.PasswordSignIn(ctx, "ana@example.com", "wrong", true)
	require.NoError(t, err)
	stored, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AccessFailedCount)

	res, err := svc.PasswordSignIn(ctx, "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
	stored, err = store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.AccessFailedCount)
}

func TestPasswordSignIn_WithoutLockoutTracking(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFailedAttempts = 1
	svc, _, _ := newTestService(t, opts)
	mustCreate(t, svc, newUser("ana@example.com"))

	res, err := svc.PasswordSignIn(context.Background(), "ana@example.com", "wrong", false)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Outcome)

	res, err = svc.PasswordSignIn(context.Background(), "ana@example.com", strongPassword, false)
	require.NoError(t, err)
	assert.Equal(t, Success, res.Outcome)
}

func TestPasswordSignIn_UnconfirmedEmail(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())
	user := newUser("ana@example.com")
	user.EmailConfirmed = false
	mustCreate(t, svc, user)

	res, err := svc.PasswordSignIn(context.Background(), "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, NotAllowed, res.Outcome)
}

func TestPasswordSignIn_LockedOutTakesPrecedenceOverUnconfirmed(t *testing.T) {
	svc, store, c := newTestService(t, DefaultOptions())
	user := newUser("ana@example.com")
	user.EmailConfirmed = false
	created := mustCreate(t, svc, user)
	end := c.t.Add(time.Minute)
	_, err := store.RecordFailedAccess(context.Background(), created.ID, 1, end)
	require.NoError(t, err)

	res, err := svc.PasswordSignIn(context.Background(), "ana@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, LockedOut, res.Outcome)
}

type failingStore struct {
	*memstore.Store
}

func (f failingStore) FindByNormalizedUserName(context.Context, string) (models.User, error) {
	return models.User{}, errors.New("db down")
}

func TestPasswordSignIn_StoreError(t *testing.T) {
	svc, err := NewService(failingStore{memstore.New()}, DefaultOptions())
	require.NoError(t, err)

	_, err = svc.PasswordSignIn(context.Background(), "ana@example.com", strongPassword, true)
	require.Error(t, err)
}

func TestFindByEmail_CaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())
	created := mustCreate(t, svc, newUser("ana@example.com"))

	got, err := svc.FindByEmail(context.Background(), "ANA@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.FindByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRolesOf(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())
	created := mustCreate(t, svc, newUser("ana@example.com"))

	roles, err := svc.RolesOf(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, svc.AddToRole(context.Background(), created, models.AdminRole))
	roles, err = svc.RolesOf(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.AdminRole}, roles)
}

func TestAddToRole_UnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t, DefaultOptions())
	created := mustCreate(t, svc, newUser("ana@example.com"))

	err := svc.AddToRole(context.Background(), created, "Ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdatePhoto(t *testing.T) {
	svc, store, _ := newTestService(t, DefaultOptions())
	created := mustCreate(t, svc, newUser("ana@example.com"))

	require.NoError(t, svc.UpdatePhoto(context.Background(), created.ID, "/img/users/x.png"))
	stored, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/img/users/x.png", stored.Photo)
}
