package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/plans"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// LedgerService creates transactions and drives the non-settlement
// lifecycle moves: expiry, merchant cancellation and deposits.
type LedgerService struct {
	trx        repo.Transactions
	merchants  repo.Merchants
	catalog    *plans.Catalog
	audit      auditor
	notify     Notifier
	log        *slog.Logger
	now        func() time.Time
	maxRetries int
}

func NewLedgerService(r repo.Repositories, catalog *plans.Catalog, n Notifier, maxRetries int, log *slog.Logger) *LedgerService {
	log = orDefault(log)
	if catalog == nil {
		catalog = plans.Default()
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &LedgerService{
		trx:        r.Transactions,
		merchants:  r.Merchants,
		catalog:    catalog,
		audit:      auditor{logs: r.AuditLogs, log: log},
		notify:     orNoop(n),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: maxRetries,
	}
}

type NewTransaction struct {
	Amount      models.Money
	Description string
	MerchantID  string
	Type        models.TransactionType
	PlanID      string
}

// CreateTransaction records a PENDING transaction. No balance moves.
func (s *LedgerService) CreateTransaction(ctx context.Context, in NewTransaction) (models.Transaction, error) {
	if in.Amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if in.Type == "" {
		in.Type = models.TxnPayment
	}
	if !in.Type.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, in.Type)
	}
	// Deposits credit the payer and only enter the ledger through Deposit.
	if in.Type == models.TxnDeposit {
		return models.Transaction{}, fmt.Errorf("%w: deposits cannot be requested", ErrInvalidType)
	}
	if in.Type == models.TxnSubscriptionFee {
		if in.MerchantID == "" {
			return models.Transaction{}, fmt.Errorf("%w: subscription fee needs a merchant", ErrInvalidInput)
		}
		plan, ok := s.catalog.Get(in.PlanID)
		if !ok {
			return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidPlan, in.PlanID)
		}
		price, err := plan.PriceMinor()
		if err != nil {
			return models.Transaction{}, fmt.Errorf("price plan %s: %w", plan.ID, err)
		}
		if in.Amount != price {
			return models.Transaction{}, fmt.Errorf("%w: %s costs %s", ErrInvalidAmount, plan.ID, price)
		}
	}

	tx := models.Transaction{
		ID:          uuid.NewString(),
		Amount:      in.Amount,
		Description: in.Description,
		Type:        in.Type,
		Status:      models.TxnPending,
		CreatedAt:   s.now(),
	}
	if in.MerchantID != "" {
		mid := in.MerchantID
		tx.MerchantID = &mid
	}
	if in.PlanID != "" {
		pid := in.PlanID
		tx.PlanID = &pid
	}

	created, err := s.trx.Create(ctx, tx)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrMerchantNotFound
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	metrics.TransactionsCreated.WithLabelValues(string(created.Type)).Inc()
	s.audit.record(ctx, "transaction", created.ID, "created", map[string]any{
		"amount": created.Amount.String(),
		"type":   created.Type,
	})
	s.log.Info("transaction created", "txn_id", created.ID, "type", created.Type, "amount", created.Amount.String())
	return created, nil
}

// CreateSubscriptionCharge prices a plan upgrade and records it as a PENDING
// SUBSCRIPTION_FEE against the merchant. The plan activates on settlement.
func (s *LedgerService) CreateSubscriptionCharge(ctx context.Context, merchantID, planID string) (models.Transaction, error) {
	plan, ok := s.catalog.Get(planID)
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidPlan, planID)
	}
	price, err := plan.PriceMinor()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("price plan %s: %w", planID, err)
	}
	if price <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: %s is free", ErrInvalidPlan, planID)
	}
	m, err := s.merchants.GetByID(ctx, merchantID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrMerchantNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	if m.CurrentPlan == plan.ID && m.SubscriptionStatus == models.SubscriptionActive {
		return models.Transaction{}, fmt.Errorf("%w: already on %s", ErrInvalidPlan, plan.ID)
	}
	return s.CreateTransaction(ctx, NewTransaction{
		Amount:      price,
		Description: "Upgrade to " + plan.Name,
		MerchantID:  merchantID,
		Type:        models.TxnSubscriptionFee,
		PlanID:      plan.ID,
	})
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	tx, err := s.trx.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrTransactionNotFound
	}
	return tx, err
}

func (s *LedgerService) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.trx.ListByMerchant(ctx, merchantID, limit, offset)
}

// Expire moves a PENDING transaction older than ttl to EXPIRED. A transaction
// that is already terminal is returned unchanged.
func (s *LedgerService) Expire(ctx context.Context, id string, ttl time.Duration) (models.Transaction, error) {
	tx, _, err := s.expire(ctx, id, ttl)
	return tx, err
}

func (s *LedgerService) expire(ctx context.Context, id string, ttl time.Duration) (models.Transaction, bool, error) {
	var (
		out     models.Transaction
		changed bool
	)
	err := runAtomic(ctx, "expire", s.trx, s.maxRetries, func(tx repo.LedgerTx) error {
		changed = false
		t, err := tx.GetTransaction(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		out = t
		if t.Status.Terminal() {
			return nil
		}
		now := s.now()
		if now.Sub(t.CreatedAt) < ttl {
			return ErrNotYetExpired
		}
		t.Transition(models.TxnExpired, now)
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		out, changed = t, true
		return nil
	})
	if err != nil {
		return models.Transaction{}, false, err
	}
	if changed {
		metrics.TransactionsExpired.Inc()
		s.audit.record(ctx, "transaction", id, "expired", nil)
		s.notify.Publish(out)
	}
	return out, changed, nil
}

// ExpireStale expires up to batch PENDING transactions older than ttl and
// reports how many it moved.
func (s *LedgerService) ExpireStale(ctx context.Context, ttl time.Duration, batch int) (int, error) {
	ids, err := s.trx.ListPendingBefore(ctx, s.now().Add(-ttl), batch)
	if err != nil {
		return 0, fmt.Errorf("list stale: %w", err)
	}
	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		_, changed, err := s.expire(ctx, id, ttl)
		if err != nil {
			s.log.Warn("expire failed", "txn_id", id, "err", err)
			continue
		}
		if changed {
			n++
		}
	}
	if n > 0 {
		s.log.Info("expired stale transactions", "count", n)
	}
	return n, nil
}

// Cancel fails a merchant's own PENDING transaction.
func (s *LedgerService) Cancel(ctx context.Context, id, merchantID string) (models.Transaction, error) {
	var out models.Transaction
	err := runAtomic(ctx, "cancel", s.trx, s.maxRetries, func(tx repo.LedgerTx) error {
		t, err := tx.GetTransaction(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		if !t.HasMerchant() || *t.MerchantID != merchantID {
			return ErrTransactionNotFound
		}
		switch t.Status {
		case models.TxnCompleted:
			return ErrAlreadySettled
		case models.TxnFailed, models.TxnExpired:
			return ErrTransactionDead
		}
		t.Transition(models.TxnFailed, s.now())
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.audit.record(ctx, "transaction", id, "cancelled", map[string]any{"merchant_id": merchantID})
	s.notify.Publish(out)
	return out, nil
}

// Deposit credits a payer's balance and records a completed DEPOSIT.
func (s *LedgerService) Deposit(ctx context.Context, userID string, amount models.Money) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	var out models.Transaction
	err := runAtomic(ctx, "deposit", s.trx, s.maxRetries, func(tx repo.LedgerTx) error {
		u, err := tx.GetUser(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		balance, err := u.MainBalance.Add(amount)
		if err != nil {
			return fmt.Errorf("%w: balance would overflow", ErrInvalidAmount)
		}
		if err := tx.UpdateUserBalance(ctx, u.ID, balance); err != nil {
			return err
		}
		now := s.now()
		method := models.MethodDeposit
		t := models.Transaction{
			ID:          uuid.NewString(),
			Amount:      amount,
			Description: "Deposit",
			Type:        models.TxnDeposit,
			Status:      models.TxnPending,
			Method:      &method,
			PayerID:     &u.ID,
			CreatedAt:   now,
		}
		t.Transition(models.TxnCompleted, now)
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	metrics.TransactionsCreated.WithLabelValues(string(models.TxnDeposit)).Inc()
	s.audit.record(ctx, "user", userID, "deposit", map[string]any{"amount": amount.String(), "txn_id": out.ID})
	return out, nil
}
