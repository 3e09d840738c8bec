package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, amount, description, type, status, method, merchant_id, payer_id, plan_id, created_at, processed_at`

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var (
		t      models.Transaction
		amount int64
		method *string
	)
	err := row.Scan(&t.ID, &amount, &t.Description, &t.Type, &t.Status, &method,
		&t.MerchantID, &t.PayerID, &t.PlanID, &t.CreatedAt, &t.ProcessedAt)
	if err != nil {
		return models.Transaction{}, mapErr(err)
	}
	t.Amount = models.Money(amount)
	if method != nil {
		m := models.PaymentMethod(*method)
		t.Method = &m
	}
	return t, nil
}

func methodArg(m *models.PaymentMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return scanTransaction(r.pool.QueryRow(ctx, insertTxnSQL+` RETURNING `+txnColumns, insertTxnArgs(t)...))
}

const insertTxnSQL = `
INSERT INTO transactions (id, amount, description, type, status, method, merchant_id, payer_id, plan_id, created_at, processed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, now()),$11)`

func insertTxnArgs(t models.Transaction) []any {
	var created *time.Time
	if !t.CreatedAt.IsZero() {
		created = &t.CreatedAt
	}
	return []any{t.ID, int64(t.Amount), t.Description, t.Type, t.Status, methodArg(t.Method),
		t.MerchantID, t.PayerID, t.PlanID, created, t.ProcessedAt}
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id))
}

func (r *transactionsRepo) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE merchant_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		merchantID, limit, offset,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM transactions WHERE status='PENDING' AND created_at < $1 ORDER BY created_at LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// WithTx runs fn inside one SERIALIZABLE transaction. Serialization failures
// and deadlocks come back as repo.ErrConflict so the caller can retry.
func (r *transactionsRepo) WithTx(ctx context.Context, fn func(repo.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return mapErr(err)
	}
	if err := fn(&ledgerTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

type ledgerTx struct{ tx pgx.Tx }

func (l *ledgerTx) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	return scanTransaction(l.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1 FOR UPDATE`, id))
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, t models.Transaction) error {
	_, err := l.tx.Exec(ctx, insertTxnSQL, insertTxnArgs(t)...)
	return err
}

// UpdateTransaction writes the lifecycle fields only; amount and merchant are immutable.
func (l *ledgerTx) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	tag, err := l.tx.Exec(ctx,
		`UPDATE transactions SET status=$2, method=$3, payer_id=$4, processed_at=$5 WHERE id=$1`,
		t.ID, t.Status, methodArg(t.Method), t.PayerID, t.ProcessedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (l *ledgerTx) FindCardOwner(ctx context.Context, cardNumber string) (string, error) {
	var userID string
	err := l.tx.QueryRow(ctx, `SELECT user_id FROM cards WHERE card_number=$1`, cardNumber).Scan(&userID)
	return userID, mapErr(err)
}

func (l *ledgerTx) GetUser(ctx context.Context, id string) (models.User, error) {
	return getUser(ctx, l.tx, id, true)
}

func (l *ledgerTx) UpdateUserBalance(ctx context.Context, id string, balance models.Money) error {
	tag, err := l.tx.Exec(ctx, `UPDATE users SET main_balance=$2, updated_at=now() WHERE id=$1`, id, int64(balance))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (l *ledgerTx) GetMerchant(ctx context.Context, id string) (models.Merchant, error) {
	return getMerchant(ctx, l.tx, id, true)
}

func (l *ledgerTx) UpdateMerchant(ctx context.Context, m models.Merchant) error {
	tag, err := l.tx.Exec(ctx,
		`UPDATE merchants
		    SET balance=$2, current_plan=$3, subscription_status=$4, billing_cycle=$5,
		        last_billing_date=$6, updated_at=now()
		  WHERE id=$1`,
		m.ID, int64(m.Balance), m.CurrentPlan, m.SubscriptionStatus, m.BillingCycle, m.LastBillingDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
