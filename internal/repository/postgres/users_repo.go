package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, email, display_name, account_number, pin_hash, main_balance, status, created_at, updated_at`

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users(id, email, display_name, account_number, pin_hash, main_balance, status)
			 VALUES($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.DisplayName, u.AccountNumber, u.PINHash, int64(u.MainBalance), u.Status,
		)
		if err != nil {
			return err
		}
		for _, c := range u.Cards {
			if err := insertCard(ctx, tx, u.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return r.GetByID(ctx, u.ID)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return getUser(ctx, r.pool, id, false)
}

func (r *usersRepo) AddCard(ctx context.Context, userID string, c models.Card) error {
	return mapErr(insertCard(ctx, r.pool, userID, c))
}

func (r *usersRepo) RemoveCard(ctx context.Context, userID, number string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE card_number=$1 AND user_id=$2`, number, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	return r.exec(ctx, `UPDATE users SET status=$2, updated_at=now() WHERE id=$1`, id, status)
}

func (r *usersRepo) UpdatePINHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET pin_hash=$2, updated_at=now() WHERE id=$1`, id, hash)
}

func (r *usersRepo) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// The cards table doubles as the card-number index: card_number is its
// primary key, so an insert either claims the number or fails as duplicate.
func insertCard(ctx context.Context, q querier, userID string, c models.Card) error {
	_, err := q.Exec(ctx,
		`INSERT INTO cards(card_number, user_id, cvv_hash, expiry, provider) VALUES($1,$2,$3,$4,$5)`,
		c.Number, userID, c.CVVHash, c.Expiry, c.Provider,
	)
	return err
}

func getUser(ctx context.Context, q querier, id string, lock bool) (models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var (
		u       models.User
		balance int64
	)
	err := q.QueryRow(ctx, sql, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AccountNumber, &u.PINHash,
		&balance, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	u.MainBalance = models.Money(balance)

	rows, err := q.Query(ctx,
		`SELECT card_number, cvv_hash, expiry, provider, created_at FROM cards WHERE user_id=$1 ORDER BY created_at`, id)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.Number, &c.CVVHash, &c.Expiry, &c.Provider, &c.CreatedAt); err != nil {
			return models.User{}, err
		}
		u.Cards = append(u.Cards, c)
	}
	return u, rows.Err()
}
