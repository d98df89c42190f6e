// Package memstore is an in-memory storage.UserStore for tests and local
// experiments. It enforces the same uniqueness rules as the Postgres schema.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hongminglow/gstore/internal/models"
	"github.com/hongminglow/gstore/internal/storage"
)

var _ storage.UserStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	users  map[string]models.User
	roles  map[string]string
	grants map[string]map[string]struct{}
}

// New returns a store seeded with the Customer and Admin roles.
func New() *Store {
	return &Store{
		users: make(map[string]models.User),
		roles: map[string]string{
			models.Normalize(models.CustomerRole): models.CustomerRole,
			models.Normalize(models.AdminRole):    models.AdminRole,
		},
		grants: make(map[string]map[string]struct{}),
	}
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conflict := &storage.ConflictError{}
	for _, existing := range s.users {
		if existing.NormalizedUserName == user.NormalizedUserName {
			conflict.UserName = true
		}
		if existing.NormalizedEmail == user.NormalizedEmail {
			conflict.Email = true
		}
	}
	if conflict.UserName || conflict.Email {
		return models.User{}, conflict
	}
	if _, ok := s.users[user.ID]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}

	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindByNormalizedUserName(_ context.Context, normalized string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.NormalizedUserName == normalized })
}

func (s *Store) FindByNormalizedEmail(_ context.Context, normalized string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.NormalizedEmail == normalized })
}

func (s *Store) RecordFailedAccess(_ context.Context, userID string, maxFailures int, lockoutEnd time.Time) (storage.LockoutState, error) {
	var state storage.LockoutState
	err := s.update(userID, func(u *models.User) {
		u.AccessFailedCount++
		if u.AccessFailedCount >= maxFailures {
			end := lockoutEnd
			u.AccessFailedCount = 0
			u.LockoutEnd = &end
		}
		state = storage.LockoutState{AccessFailedCount: u.AccessFailedCount, LockoutEnd: u.LockoutEnd}
	})
	return state, err
}

func (s *Store) ResetAccessFailedCount(_ context.Context, userID string) error {
	return s.update(userID, func(u *models.User) { u.AccessFailedCount = 0 })
}

func (s *Store) UpdatePhoto(_ context.Context, userID, photo string) error {
	return s.update(userID, func(u *models.User) { u.Photo = photo })
}

func (s *Store) AddToRole(_ context.Context, userID, normalizedRole string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return storage.ErrNotFound
	}
	if _, ok := s.roles[normalizedRole]; !ok {
		return storage.ErrNotFound
	}
	if s.grants[userID] == nil {
		s.grants[userID] = make(map[string]struct{})
	}
	s.grants[userID][normalizedRole] = struct{}{}
	return nil
}

func (s *Store) RolesOf(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for normalized := range s.grants[userID] {
		out = append(out, s.roles[normalized])
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many users are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) find(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) update(userID string, apply func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	apply(&user)
	s.users[userID] = user
	return nil
}
