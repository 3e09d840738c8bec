package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/paycore/internal/models"
)

func TestCreateTransactionValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "m1@example.com")

	_, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, Type: "REFUND"})
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, MerchantID: "ghost"})
	assert.ErrorIs(t, err, ErrMerchantNotFound)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, Type: models.TxnSubscriptionFee, PlanID: "PREMIUM"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, Type: models.TxnSubscriptionFee, MerchantID: m.ID, PlanID: "GOLD"})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 5000, Description: "Order #1", MerchantID: m.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, models.TxnPayment, tx.Type)
	assert.Equal(t, models.TxnPending, tx.Status)
	assert.Nil(t, tx.ProcessedAt)
	assert.Nil(t, tx.PayerID)
	assert.Equal(t, *f.clock, tx.CreatedAt)
	assert.Equal(t, models.Money(0), f.merchantBalance(t, m.ID))
}

func TestCreateTransactionPricesSubscriptionFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payer := f.payer(t, "payer@example.com", 9999, visaCard)
	m := f.merchant(t, "m1@example.com")

	_, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 1, Type: models.TxnSubscriptionFee, MerchantID: m.ID, PlanID: "ENTERPRISE"})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, Type: models.TxnSubscriptionFee, MerchantID: m.ID, PlanID: "FREE"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	got, err := f.accounts.GetMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "FREE", got.CurrentPlan)
	assert.Equal(t, models.Money(9999), f.balanceOf(t, payer.ID))

	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 2900, Type: models.TxnSubscriptionFee, MerchantID: m.ID, PlanID: "BASIC"})
	require.NoError(t, err)
	assert.Equal(t, models.Money(2900), tx.Amount)
}

func TestCreateTransactionRejectsDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "m1@example.com")

	_, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 500, Type: models.TxnDeposit})
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 500, Type: models.TxnDeposit, MerchantID: m.ID})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateSubscriptionChargeRejectsFreeAndCurrentPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "m1@example.com")

	_, err := f.ledger.CreateSubscriptionCharge(ctx, m.ID, "FREE")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	_, err = f.ledger.CreateSubscriptionCharge(ctx, m.ID, "NOPE")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	_, err = f.ledger.CreateSubscriptionCharge(ctx, "ghost", "BASIC")
	assert.ErrorIs(t, err, ErrMerchantNotFound)

	tx, err := f.ledger.CreateSubscriptionCharge(ctx, m.ID, "BASIC")
	require.NoError(t, err)
	assert.Equal(t, models.Money(2900), tx.Amount)
	require.NotNil(t, tx.PlanID)
	assert.Equal(t, "BASIC", *tx.PlanID)
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100})
	require.NoError(t, err)

	_, err = f.ledger.Expire(ctx, tx.ID, 15*time.Minute)
	assert.ErrorIs(t, err, ErrNotYetExpired)

	f.advance(16 * time.Minute)
	got, err := f.ledger.Expire(ctx, tx.ID, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.TxnExpired, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, *f.clock, *got.ProcessedAt)

	again, err := f.ledger.Expire(ctx, tx.ID, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.TxnExpired, again.Status)
	assert.Len(t, f.notified.events(), 1)

	_, err = f.ledger.Expire(ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestExpireLeavesCompletedAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.payer(t, "payer@example.com", 1000, visaCard)
	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100})
	require.NoError(t, err)
	_, err = f.settle.Settle(ctx, tx.ID, cardEntry(visaCard))
	require.NoError(t, err)

	f.advance(time.Hour)
	got, err := f.ledger.Expire(ctx, tx.ID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, got.Status)
}

func TestExpireRacingSettleHasOneWinner(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		payer := f.payer(t, "payer@example.com", 1000, visaCard)
		tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100})
		require.NoError(t, err)
		f.advance(time.Hour)

		var (
			wg        sync.WaitGroup
			settleErr error
			expired   models.Transaction
			expireErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, settleErr = f.settle.Settle(ctx, tx.ID, cardEntry(visaCard))
		}()
		go func() {
			defer wg.Done()
			expired, expireErr = f.ledger.Expire(ctx, tx.ID, time.Minute)
		}()
		wg.Wait()

		require.NoError(t, expireErr)
		final, err := f.ledger.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		switch final.Status {
		case models.TxnCompleted:
			require.NoError(t, settleErr)
			assert.Equal(t, models.Money(900), f.balanceOf(t, payer.ID))
		case models.TxnExpired:
			assert.ErrorIs(t, settleErr, ErrTransactionDead)
			assert.Equal(t, models.Money(1000), f.balanceOf(t, payer.ID))
		default:
			t.Fatalf("unexpected status %s", final.Status)
		}
		assert.Equal(t, final.Status, expired.Status)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	old1, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100})
	require.NoError(t, err)
	old2, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 200})
	require.NoError(t, err)
	f.advance(20 * time.Minute)
	fresh, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 300})
	require.NoError(t, err)

	n, err := f.ledger.ExpireStale(ctx, 15*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]models.TransactionStatus{
		old1.ID:  models.TxnExpired,
		old2.ID:  models.TxnExpired,
		fresh.ID: models.TxnPending,
	} {
		got, err := f.ledger.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	n, err = f.ledger.ExpireStale(ctx, 15*time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "m1@example.com")
	other := f.merchant(t, "m2@example.com")
	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100, MerchantID: m.ID})
	require.NoError(t, err)

	_, err = f.ledger.Cancel(ctx, tx.ID, other.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	got, err := f.ledger.Cancel(ctx, tx.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxnFailed, got.Status)

	_, err = f.ledger.Cancel(ctx, tx.ID, m.ID)
	assert.ErrorIs(t, err, ErrTransactionDead)
}

func TestListByMerchant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "m1@example.com")
	for i := 1; i <= 3; i++ {
		_, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: models.Money(i * 100), MerchantID: m.ID})
		require.NoError(t, err)
		f.advance(time.Second)
	}
	_, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 999})
	require.NoError(t, err)

	list, err := f.ledger.ListByMerchant(ctx, m.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, models.Money(300), list[0].Amount)

	page, err := f.ledger.ListByMerchant(ctx, m.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, models.Money(200), page[0].Amount)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payer := f.payer(t, "payer@example.com", 0, "")

	tx, err := f.ledger.Deposit(ctx, payer.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, models.TxnDeposit, tx.Type)
	assert.Equal(t, models.TxnCompleted, tx.Status)
	assert.Equal(t, models.Money(2500), f.balanceOf(t, payer.ID))

	_, err = f.ledger.Deposit(ctx, payer.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.Deposit(ctx, "ghost", 100)
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err := f.ledger.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, got.Status)
}

func TestDepositRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	payer := f.payer(t, "payer@example.com", math.MaxInt64-10, "")

	_, err := f.ledger.Deposit(ctx, payer.ID, 11)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, models.Money(math.MaxInt64-10), f.balanceOf(t, payer.ID))

	_, err = f.ledger.Deposit(ctx, payer.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.Money(math.MaxInt64), f.balanceOf(t, payer.ID))
}
