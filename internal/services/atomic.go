package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

const defaultMaxRetries = 5

// Notifier receives every committed transaction state change.
type Notifier interface {
	Publish(tx models.Transaction)
}

// Notifiers fans one change out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Publish(tx models.Transaction) {
	for _, n := range ns {
		n.Publish(tx)
	}
}

// runAtomic executes fn as one atomic unit and re-runs it from the top when
// the store reports a conflicting concurrent commit. op labels the retry metric.
func runAtomic(ctx context.Context, op string, trx repo.Transactions, attempts int, fn func(repo.LedgerTx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := trx.WithTx(ctx, fn)
		if !errors.Is(err, repo.ErrConflict) {
			return err
		}
		metrics.AtomicRetries.WithLabelValues(op).Inc()
		if i == attempts-1 {
			break
		}
		backoff := time.Duration(1<<i)*5*time.Millisecond + rand.N(5*time.Millisecond)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return ErrConcurrencyConflict
}

// auditor writes best-effort audit rows; a failed write is logged, not returned.
type auditor struct {
	logs repo.AuditLogs
	log  *slog.Logger
}

func (a auditor) record(ctx context.Context, entityType, entityID, action string, details map[string]any) {
	if a.logs == nil {
		return
	}
	err := a.logs.Create(ctx, models.AuditLog{
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	})
	if err != nil {
		a.log.Warn("audit write failed", "entity", entityType, "id", entityID, "action", action, "err", err)
	}
}

type noopNotifier struct{}

func (noopNotifier) Publish(models.Transaction) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
