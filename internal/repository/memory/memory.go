// Package memory is a thread-safe in-process store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/google/uuid"
)

// Store keeps users and transactions in maps guarded by one RWMutex
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*models.User
	emailIndex   map[string]uuid.UUID // lower(email) -> live user
	transactions map[uuid.UUID]*models.Transaction
	now          func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*models.User),
		emailIndex:   make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]*models.Transaction),
		now:          time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, taken := s.emailIndex[key]; taken {
		return apperr.ErrConflict
	}
	if _, exists := s.users[user.PublicID]; exists {
		return apperr.ErrConflict
	}
	u := *user
	s.users[u.PublicID] = &u
	s.emailIndex[key] = u.PublicID
	return nil
}

func (s *Store) FindActiveUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) FindActiveUserByPublicID(_ context.Context, publicID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[publicID]
	if !ok || u.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) SoftDeleteUser(_ context.Context, publicID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[publicID]
	if !ok || u.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	now := s.now().UTC()
	u.DeletedAt = &now
	u.UpdatedAt = now
	delete(s.emailIndex, strings.ToLower(u.Email))
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.PublicID]; exists {
		return apperr.ErrConflict
	}
	t := *tx
	s.transactions[t.PublicID] = &t
	return nil
}

// live returns the owner's non-deleted transactions; caller holds the lock
func (s *Store) live(owner uuid.UUID) []models.Transaction {
	var out []models.Transaction
	for _, t := range s.transactions {
		if t.UserPublicID == owner && t.DeletedAt == nil {
			out = append(out, *t)
		}
	}
	return out
}

func (s *Store) ListTransactions(_ context.Context, owner uuid.UUID, skip, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.live(owner)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})

	if skip >= len(out) {
		return []models.Transaction{}, nil
	}
	end := skip + limit
	if end > len(out) {
		end = len(out)
	}
	return out[skip:end], nil
}

func (s *Store) GetTransaction(_ context.Context, publicID, owner uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[publicID]
	if !ok || t.UserPublicID != owner || t.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, publicID, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[publicID]
	if !ok || t.UserPublicID != owner || t.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	now := s.now().UTC()
	t.DeletedAt = &now
	t.UpdatedAt = now
	return nil
}

func (s *Store) AggregateBalance(_ context.Context, owner uuid.UUID) (models.BalanceTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals models.BalanceTotals
	for _, t := range s.live(owner) {
		totals.Add(t.Type, t.Amount, 1)
	}
	return totals, nil
}

// SetUserActive flips the active flag of a live user. Accounts are deactivated out of band;
// the HTTP surface never calls this.
func (s *Store) SetUserActive(_ context.Context, publicID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[publicID]
	if !ok || u.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = s.now().UTC()
	return nil
}
