package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/paycore/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means the store aborted an atomic unit because a concurrent
	// commit touched the same records. The unit may be retried.
	ErrConflict  = errors.New("concurrent modification")
	ErrDuplicate = errors.New("duplicate record")
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	// AddCard stores the card and its card-number index entry together.
	AddCard(ctx context.Context, userID string, c models.Card) error
	RemoveCard(ctx context.Context, userID, number string) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdatePINHash(ctx context.Context, id, hash string) error
}

type Merchants interface {
	Create(ctx context.Context, m models.Merchant) (models.Merchant, error)
	GetByID(ctx context.Context, id string) (models.Merchant, error)
	UpdateWebhook(ctx context.Context, id, url string) error
}

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error)
	// ListPendingBefore returns ids of PENDING transactions created before cutoff.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// WithTx runs fn as one atomic unit: every read observes one snapshot and
	// all writes commit or abort together. A lost race surfaces as ErrConflict.
	WithTx(ctx context.Context, fn func(LedgerTx) error) error
}

// LedgerTx is the view of the store inside one atomic unit.
type LedgerTx interface {
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	InsertTransaction(ctx context.Context, t models.Transaction) error
	UpdateTransaction(ctx context.Context, t models.Transaction) error

	// FindCardOwner resolves a card number through the card index.
	FindCardOwner(ctx context.Context, cardNumber string) (string, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUserBalance(ctx context.Context, id string, balance models.Money) error

	GetMerchant(ctx context.Context, id string) (models.Merchant, error)
	// UpdateMerchant writes balance and subscription fields.
	UpdateMerchant(ctx context.Context, m models.Merchant) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Users        Users
	Merchants    Merchants
	Transactions Transactions
	AuditLogs    AuditLogs
}
