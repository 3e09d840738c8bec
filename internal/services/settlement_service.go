package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

// AuthMode selects which factors a settlement must present.
type AuthMode string

const (
	// AuthCardEntry checks PIN, CVV and expiry against the stored card.
	AuthCardEntry AuthMode = "CARD_ENTRY"
	// AuthWalletPINOnly checks the payer PIN only. Used by the wallet app,
	// where the device already holds the card.
	AuthWalletPINOnly AuthMode = "WALLET_PIN_ONLY"
)

func (m AuthMode) Valid() bool { return m == AuthCardEntry || m == AuthWalletPINOnly }

type Credentials struct {
	CardNumber string
	PIN        string
	CVV        string
	Expiry     string
	Mode       AuthMode
}

func (c Credentials) validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown auth mode %q", ErrInvalidInput, c.Mode)
	}
	if c.CardNumber == "" {
		return fmt.Errorf("%w: card number is required", ErrInvalidInput)
	}
	if !auth.ValidPIN(c.PIN) {
		return fmt.Errorf("%w: a 6-digit PIN is required", ErrInvalidInput)
	}
	if c.Mode == AuthCardEntry && (c.CVV == "" || c.Expiry == "") {
		return fmt.Errorf("%w: cvv and expiry are required", ErrInvalidInput)
	}
	return nil
}

// SettlementService moves money for a PENDING transaction. Every settlement
// runs as one atomic unit: either the payer debit, the merchant credit, the
// plan activation and the COMPLETED stamp all commit, or none of them do.
type SettlementService struct {
	trx        repo.Transactions
	audit      auditor
	notify     Notifier
	log        *slog.Logger
	now        func() time.Time
	maxRetries int
}

func NewSettlementService(r repo.Repositories, n Notifier, maxRetries int, log *slog.Logger) *SettlementService {
	log = orDefault(log)
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &SettlementService{
		trx:        r.Transactions,
		audit:      auditor{logs: r.AuditLogs, log: log},
		notify:     orNoop(n),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: maxRetries,
	}
}

// Settle authenticates the card holder and completes the transaction.
func (s *SettlementService) Settle(ctx context.Context, txnID string, cred Credentials) (models.Transaction, error) {
	if txnID == "" {
		return models.Transaction{}, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}
	if err := cred.validate(); err != nil {
		metrics.SettlementsTotal.WithLabelValues(string(cred.Mode), CodeOf(err)).Inc()
		return models.Transaction{}, err
	}
	number := models.NormalizeCardNumber(cred.CardNumber)

	var settled models.Transaction
	err := runAtomic(ctx, "settle", s.trx, s.maxRetries, func(tx repo.LedgerTx) error {
		t, err := s.settleOnce(ctx, tx, txnID, number, cred)
		if err != nil {
			return err
		}
		settled = t
		return nil
	})
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(string(cred.Mode), CodeOf(err)).Inc()
		if KindOf(err) == KindUnexpected {
			s.log.Error("settlement failed", "txn_id", txnID, "err", err)
		} else {
			s.log.Info("settlement rejected", "txn_id", txnID, "code", CodeOf(err))
		}
		return models.Transaction{}, err
	}

	metrics.SettlementsTotal.WithLabelValues(string(cred.Mode), "completed").Inc()
	s.audit.record(ctx, "transaction", settled.ID, "settled", map[string]any{
		"payer_id": *settled.PayerID,
		"amount":   settled.Amount.String(),
		"mode":     cred.Mode,
	})
	s.log.Info("settlement completed", "txn_id", settled.ID, "payer_id", *settled.PayerID, "amount", settled.Amount.String())
	s.notify.Publish(settled)
	return settled, nil
}

func (s *SettlementService) settleOnce(ctx context.Context, tx repo.LedgerTx, txnID, number string, cred Credentials) (models.Transaction, error) {
	payerID, err := tx.FindCardOwner(ctx, number)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrCardNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}

	t, err := tx.GetTransaction(ctx, txnID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	switch t.Status {
	case models.TxnCompleted:
		return models.Transaction{}, ErrAlreadySettled
	case models.TxnFailed, models.TxnExpired:
		return models.Transaction{}, ErrTransactionDead
	}
	if t.Type == models.TxnDeposit {
		return models.Transaction{}, fmt.Errorf("%w: deposits are not settled by card", ErrInvalidType)
	}

	payer, err := tx.GetUser(ctx, payerID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, ErrCardNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	if !authenticate(payer, number, cred) {
		return models.Transaction{}, ErrAuthenticationFailed
	}
	if payer.MainBalance < t.Amount {
		return models.Transaction{}, ErrInsufficientFunds
	}

	now := s.now()
	if err := tx.UpdateUserBalance(ctx, payer.ID, payer.MainBalance-t.Amount); err != nil {
		return models.Transaction{}, err
	}
	if t.HasMerchant() {
		m, err := tx.GetMerchant(ctx, *t.MerchantID)
		if errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, fmt.Errorf("merchant %s: %w", *t.MerchantID, repo.ErrNotFound)
		}
		if err != nil {
			return models.Transaction{}, err
		}
		if m.Balance, err = m.Balance.Add(t.Amount); err != nil {
			return models.Transaction{}, fmt.Errorf("%w: merchant balance would overflow", ErrInvalidAmount)
		}
		if t.Type == models.TxnSubscriptionFee && t.PlanID != nil {
			m.ActivatePlan(*t.PlanID, now)
		}
		if err := tx.UpdateMerchant(ctx, m); err != nil {
			return models.Transaction{}, err
		}
	}

	method := models.MethodCard
	t.Transition(models.TxnCompleted, now)
	t.Method = &method
	t.PayerID = &payer.ID
	if err := tx.UpdateTransaction(ctx, t); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// authenticate evaluates every factor the mode requires before answering, so
// the outcome never reveals which one was wrong.
func authenticate(payer models.User, number string, cred Credentials) bool {
	ok := auth.MatchSecret(cred.PIN, payer.PINHash)
	if cred.Mode == AuthCardEntry {
		card, found := payer.Card(number)
		cvvOK := auth.MatchSecret(cred.CVV, card.CVVHash)
		expOK := subtle.ConstantTimeCompare([]byte(card.Expiry), []byte(cred.Expiry)) == 1
		ok = ok && found && cvvOK && expOK
	}
	return ok && payer.Status == models.UserActive
}
