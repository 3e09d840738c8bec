package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

type merchantsRepo struct{ pool *pgxpool.Pool }

const merchantColumns = `id, business_name, email, balance, current_plan, subscription_status,
       billing_cycle, last_billing_date, webhook_url, created_at, updated_at`

func scanMerchant(row interface{ Scan(...any) error }) (models.Merchant, error) {
	var (
		m       models.Merchant
		balance int64
	)
	err := row.Scan(&m.ID, &m.BusinessName, &m.Email, &balance, &m.CurrentPlan, &m.SubscriptionStatus,
		&m.BillingCycle, &m.LastBillingDate, &m.WebhookURL, &m.CreatedAt, &m.UpdatedAt)
	m.Balance = models.Money(balance)
	return m, mapErr(err)
}

func (r *merchantsRepo) Create(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO merchants(id, business_name, email, balance, current_plan, subscription_status, billing_cycle, webhook_url)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+merchantColumns,
		m.ID, m.BusinessName, m.Email, int64(m.Balance), m.CurrentPlan, m.SubscriptionStatus, m.BillingCycle, m.WebhookURL,
	)
	return scanMerchant(row)
}

func (r *merchantsRepo) GetByID(ctx context.Context, id string) (models.Merchant, error) {
	return getMerchant(ctx, r.pool, id, false)
}

func (r *merchantsRepo) UpdateWebhook(ctx context.Context, id, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE merchants SET webhook_url=$2, updated_at=now() WHERE id=$1`, id, url)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func getMerchant(ctx context.Context, q querier, id string, lock bool) (models.Merchant, error) {
	sql := `SELECT ` + merchantColumns + ` FROM merchants WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	return scanMerchant(q.QueryRow(ctx, sql, id))
}
