package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/models"
)

func TestRegisterPayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.accounts.RegisterPayer(ctx, NewPayer{Email: " Ada@Example.com ", PIN: testPIN, InitialBalance: 500})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Len(t, u.AccountNumber, 14)
	assert.Equal(t, models.UserActive, u.Status)
	assert.NotEqual(t, testPIN, u.PINHash)
	assert.True(t, auth.MatchSecret(testPIN, u.PINHash))

	_, err = f.accounts.RegisterPayer(ctx, NewPayer{Email: "ada@example.com", PIN: testPIN})
	assert.ErrorIs(t, err, ErrAccountExists)
	_, err = f.accounts.RegisterPayer(ctx, NewPayer{Email: "bob@example.com", PIN: "12ab"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.accounts.RegisterPayer(ctx, NewPayer{Email: "nobody", PIN: testPIN})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.payer(t, "a@example.com", 0, "")
	b := f.payer(t, "b@example.com", 0, "")

	c, err := f.accounts.AddCard(ctx, a.ID, NewCard{Number: "4111 1111 1111 1111", CVV: testCVV, Expiry: testExpiry})
	require.NoError(t, err)
	assert.Equal(t, visaCard, c.Number)
	assert.Equal(t, models.ProviderVisa, c.Provider)
	assert.True(t, auth.MatchSecret(testCVV, c.CVVHash))

	_, err = f.accounts.AddCard(ctx, b.ID, NewCard{Number: visaCard, CVV: testCVV, Expiry: testExpiry})
	assert.ErrorIs(t, err, ErrCardExists)
	_, err = f.accounts.AddCard(ctx, b.ID, NewCard{Number: "4111111111111112", CVV: testCVV, Expiry: testExpiry})
	assert.ErrorIs(t, err, ErrInvalidCard)
	_, err = f.accounts.AddCard(ctx, b.ID, NewCard{Number: mcCard, CVV: "12", Expiry: testExpiry})
	assert.ErrorIs(t, err, ErrInvalidCard)
	_, err = f.accounts.AddCard(ctx, b.ID, NewCard{Number: mcCard, CVV: testCVV, Expiry: "13/30"})
	assert.ErrorIs(t, err, ErrInvalidCard)
	_, err = f.accounts.AddCard(ctx, "ghost", NewCard{Number: mcCard, CVV: testCVV, Expiry: testExpiry})
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, f.accounts.RemoveCard(ctx, b.ID, visaCard), ErrCardNotFound)
	require.NoError(t, f.accounts.RemoveCard(ctx, a.ID, visaCard))

	// a removed number can be registered again by someone else
	_, err = f.accounts.AddCard(ctx, b.ID, NewCard{Number: visaCard, CVV: testCVV, Expiry: testExpiry})
	require.NoError(t, err)
}

func TestRegisterMerchantDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.accounts.RegisterMerchant(ctx, NewMerchant{BusinessName: "Corner Shop", Email: "Shop@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "FREE", m.CurrentPlan)
	assert.Equal(t, models.SubscriptionActive, m.SubscriptionStatus)
	assert.Equal(t, models.BillingMonthly, m.BillingCycle)
	assert.Equal(t, models.Money(0), m.Balance)

	_, err = f.accounts.RegisterMerchant(ctx, NewMerchant{BusinessName: "Other", Email: "shop@example.com"})
	assert.ErrorIs(t, err, ErrAccountExists)
	_, err = f.accounts.RegisterMerchant(ctx, NewMerchant{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, f.accounts.SetWebhook(ctx, m.ID, "ftp://nope"), ErrInvalidInput)
	require.NoError(t, f.accounts.SetWebhook(ctx, m.ID, "https://shop.example.com/hooks"))
	got, err := f.accounts.GetMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/hooks", got.WebhookURL)
}

func TestChangePIN(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.payer(t, "a@example.com", 1000, visaCard)
	require.NoError(t, f.accounts.ChangePIN(ctx, u.ID, "999999"))
	assert.ErrorIs(t, f.accounts.ChangePIN(ctx, u.ID, "1"), ErrInvalidInput)

	tx, err := f.ledger.CreateTransaction(ctx, NewTransaction{Amount: 100})
	require.NoError(t, err)
	_, err = f.settle.Settle(ctx, tx.ID, cardEntry(visaCard))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, err = f.settle.Settle(ctx, tx.ID, walletPIN(visaCard, "999999"))
	require.NoError(t, err)
}
