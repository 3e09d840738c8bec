package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

func seed(t *testing.T) (*Store, repo.Repositories, models.User) {
	t.Helper()
	s := New()
	r := s.Repositories()
	u, err := r.Users.Create(context.Background(), models.User{
		Email:         "payer@example.com",
		AccountNumber: "10000000000001",
		MainBalance:   10000,
		Status:        models.UserActive,
		Cards:         []models.Card{{Number: "4111111111111111", Expiry: "12/30", Provider: models.ProviderVisa}},
	})
	require.NoError(t, err)
	return s, r, u
}

func TestCardIndex(t *testing.T) {
	ctx := context.Background()
	_, r, u := seed(t)

	err := r.Transactions.WithTx(ctx, func(tx repo.LedgerTx) error {
		owner, err := tx.FindCardOwner(ctx, "4111111111111111")
		require.NoError(t, err)
		assert.Equal(t, u.ID, owner)
		_, err = tx.FindCardOwner(ctx, "5555555555554444")
		assert.ErrorIs(t, err, repo.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Users.AddCard(ctx, u.ID, models.Card{Number: "4111111111111111"}), repo.ErrDuplicate)
	require.NoError(t, r.Users.AddCard(ctx, u.ID, models.Card{Number: "5555555555554444"}))
	require.NoError(t, r.Users.RemoveCard(ctx, u.ID, "4111111111111111"))
	assert.ErrorIs(t, r.Users.RemoveCard(ctx, u.ID, "4111111111111111"), repo.ErrNotFound)

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, "5555555555554444", got.Cards[0].Number)
}

func TestWithTxDetectsConflict(t *testing.T) {
	ctx := context.Background()
	_, r, u := seed(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- r.Transactions.WithTx(ctx, func(tx repo.LedgerTx) error {
			cur, err := tx.GetUser(ctx, u.ID)
			if err != nil {
				return err
			}
			close(entered)
			<-release
			return tx.UpdateUserBalance(ctx, u.ID, cur.MainBalance-100)
		})
	}()

	<-entered
	err := r.Transactions.WithTx(ctx, func(tx repo.LedgerTx) error {
		cur, err := tx.GetUser(ctx, u.ID)
		if err != nil {
			return err
		}
		return tx.UpdateUserBalance(ctx, u.ID, cur.MainBalance-500)
	})
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-done, repo.ErrConflict)

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(9500), got.MainBalance)
}

func TestWithTxFailedUnitOnStaleReadsConflicts(t *testing.T) {
	ctx := context.Background()
	_, r, u := seed(t)

	err := r.Transactions.WithTx(ctx, func(tx repo.LedgerTx) error {
		if _, err := tx.GetUser(ctx, u.ID); err != nil {
			return err
		}
		require.NoError(t, r.Users.UpdateStatus(ctx, u.ID, models.UserFrozen))
		return assert.AnError
	})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestWithTxAbortLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	_, r, u := seed(t)

	err := r.Transactions.WithTx(ctx, func(tx repo.LedgerTx) error {
		if err := tx.UpdateUserBalance(ctx, u.ID, 0); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(10000), got.MainBalance)
}

func TestTransactionsQueries(t *testing.T) {
	ctx := context.Background()
	_, r, _ := seed(t)

	m, err := r.Merchants.Create(ctx, models.Merchant{BusinessName: "Shop", Email: "shop@example.com"})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := r.Transactions.Create(ctx, models.Transaction{
			Amount:     models.Money(100 * (i + 1)),
			Type:       models.TxnPayment,
			Status:     models.TxnPending,
			MerchantID: &m.ID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	missing := "nope"
	_, err = r.Transactions.Create(ctx, models.Transaction{Amount: 1, MerchantID: &missing})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	list, err := r.Transactions.ListByMerchant(ctx, m.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.Money(300), list[0].Amount)

	ids, err := r.Transactions.ListPendingBefore(ctx, base.Add(90*time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
