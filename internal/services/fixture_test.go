package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/plans"
	repo "github.com/baharkarakas/paycore/internal/repository"
	"github.com/baharkarakas/paycore/internal/repository/memory"
)

func init() { auth.Cost = bcrypt.MinCost }

const (
	testPIN    = "123456"
	testCVV    = "123"
	testExpiry = "12/30"
	visaCard   = "4111111111111111"
	mcCard     = "5555555555554444"
)

type recorder struct {
	mu  sync.Mutex
	got []models.Transaction
}

func (r *recorder) Publish(tx models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, tx)
}

func (r *recorder) events() []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Transaction(nil), r.got...)
}

type fixture struct {
	store    *memory.Store
	repos    repo.Repositories
	accounts *AccountService
	ledger   *LedgerService
	settle   *SettlementService
	notified *recorder
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	r := st.Repositories()
	rec := &recorder{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		store:    st,
		repos:    r,
		accounts: NewAccountService(r, log),
		ledger:   NewLedgerService(r, plans.Default(), rec, 5, log),
		settle:   NewSettlementService(r, rec, 5, log),
		notified: rec,
		clock:    &now,
	}
	f.ledger.now = func() time.Time { return *f.clock }
	f.settle.now = func() time.Time { return *f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) payer(t *testing.T, email string, balance models.Money, card string) models.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.accounts.RegisterPayer(ctx, NewPayer{Email: email, PIN: testPIN, InitialBalance: balance})
	require.NoError(t, err)
	if card != "" {
		_, err = f.accounts.AddCard(ctx, u.ID, NewCard{Number: card, CVV: testCVV, Expiry: testExpiry})
		require.NoError(t, err)
	}
	return u
}

func (f *fixture) merchant(t *testing.T, email string) models.Merchant {
	t.Helper()
	m, err := f.accounts.RegisterMerchant(context.Background(), NewMerchant{BusinessName: "Shop " + email, Email: email})
	require.NoError(t, err)
	return m
}

func (f *fixture) balanceOf(t *testing.T, userID string) models.Money {
	t.Helper()
	u, err := f.repos.Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.MainBalance
}

func (f *fixture) merchantBalance(t *testing.T, id string) models.Money {
	t.Helper()
	m, err := f.repos.Merchants.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m.Balance
}

func cardEntry(number string) Credentials {
	return Credentials{CardNumber: number, PIN: testPIN, CVV: testCVV, Expiry: testExpiry, Mode: AuthCardEntry}
}

func walletPIN(number, pin string) Credentials {
	return Credentials{CardNumber: number, PIN: pin, Mode: AuthWalletPINOnly}
}
