package service

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/budget-service/internal/models"
	"github.com/Dan9191/budget-service/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserStore persists users. Lookups only ever see users whose deleted_at is unset.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindActiveUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveUserByPublicID(ctx context.Context, publicID uuid.UUID) (*models.User, error)
	SoftDeleteUser(ctx context.Context, publicID uuid.UUID) error
}

// TransactionStore persists transactions. Every call is scoped to one owner.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, owner uuid.UUID, skip, limit int) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, publicID, owner uuid.UUID) (*models.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, publicID, owner uuid.UUID) error
	AggregateBalance(ctx context.Context, owner uuid.UUID) (models.BalanceTotals, error)
}

// Store is a complete backend
type Store interface {
	UserStore
	TransactionStore
	Ping(ctx context.Context) error
	Close() error
}

// Notifier delivers out-of-band messages to users
type Notifier interface {
	SendWelcome(to, fullName string) error
}

type nopNotifier struct{}

func (nopNotifier) SendWelcome(string, string) error { return nil }

// Service handles business logic
type Service struct {
	users    UserStore
	txs      TransactionStore
	hasher   *utils.PasswordHasher
	tokens   *utils.TokenManager
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time

	// in-flight welcome emails
	background sync.WaitGroup

	// compared against when the email is unknown so both login failures cost one bcrypt run
	dummyHash string
}

// Option customizes a Service
type Option func(*Service)

// WithNotifier sets the notifier used after registration
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(store Store, hasher *utils.PasswordHasher, tokens *utils.TokenManager, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		users:    store,
		txs:      store,
		hasher:   hasher,
		tokens:   tokens,
		notifier: nopNotifier{},
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash = dummyHash(hasher, log)
	return s
}

func dummyHash(hasher *utils.PasswordHasher, log *logrus.Logger) string {
	password := uuid.NewString()[:8] + "Aa1"
	hash, err := hasher.Hash(password)
	if err == nil {
		return hash
	}
	log.WithError(err).Warn("Failed to prepare dummy password hash, using default cost")
	hash, err = utils.NewPasswordHasher(0).Hash(password)
	if err != nil {
		log.WithError(err).Error("Failed to prepare dummy password hash")
	}
	return hash
}

// Drain waits for background work such as welcome emails to finish, or for ctx to end
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
