package memory

import (
	"context"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

type ledgerTx struct {
	s     *Store
	reads map[string]uint64

	txns      map[string]models.Transaction
	users     map[string]models.User
	merchants map[string]models.Merchant
}

func newLedgerTx(s *Store) *ledgerTx {
	return &ledgerTx{
		s:         s,
		reads:     map[string]uint64{},
		txns:      map[string]models.Transaction{},
		users:     map[string]models.User{},
		merchants: map[string]models.Merchant{},
	}
}

// observe records the version seen the first time a key is read.
// Must be called with s.mu held.
func (t *ledgerTx) observe(key string) {
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = t.s.versions[key]
	}
}

func (t *ledgerTx) GetTransaction(_ context.Context, id string) (models.Transaction, error) {
	if tx, ok := t.txns[id]; ok {
		return tx, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.observe(txnKey(id))
	tx, ok := t.s.txns[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return tx, nil
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, tx models.Transaction) error {
	if _, err := t.GetTransaction(ctx, tx.ID); err == nil {
		return repo.ErrDuplicate
	}
	if tx.HasMerchant() {
		if _, err := t.GetMerchant(ctx, *tx.MerchantID); err != nil {
			return err
		}
	}
	t.txns[tx.ID] = tx
	return nil
}

func (t *ledgerTx) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	cur, err := t.GetTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}
	cur.Status = tx.Status
	cur.Method = tx.Method
	cur.PayerID = tx.PayerID
	cur.ProcessedAt = tx.ProcessedAt
	t.txns[tx.ID] = cur
	return nil
}

func (t *ledgerTx) FindCardOwner(_ context.Context, cardNumber string) (string, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.observe(cardKey(cardNumber))
	owner, ok := t.s.cards[cardNumber]
	if !ok {
		return "", repo.ErrNotFound
	}
	return owner, nil
}

func (t *ledgerTx) GetUser(_ context.Context, id string) (models.User, error) {
	if u, ok := t.users[id]; ok {
		return copyUser(u), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.observe(userKey(id))
	u, ok := t.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return copyUser(u), nil
}

func (t *ledgerTx) UpdateUserBalance(ctx context.Context, id string, balance models.Money) error {
	u, err := t.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.MainBalance = balance
	t.users[id] = u
	return nil
}

func (t *ledgerTx) GetMerchant(_ context.Context, id string) (models.Merchant, error) {
	if m, ok := t.merchants[id]; ok {
		return m, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.observe(merchantKey(id))
	m, ok := t.s.merchants[id]
	if !ok {
		return models.Merchant{}, repo.ErrNotFound
	}
	return m, nil
}

func (t *ledgerTx) UpdateMerchant(ctx context.Context, m models.Merchant) error {
	cur, err := t.GetMerchant(ctx, m.ID)
	if err != nil {
		return err
	}
	cur.Balance = m.Balance
	cur.CurrentPlan = m.CurrentPlan
	cur.SubscriptionStatus = m.SubscriptionStatus
	cur.BillingCycle = m.BillingCycle
	cur.LastBillingDate = m.LastBillingDate
	t.merchants[m.ID] = cur
	return nil
}

// stale reports whether any record read by the unit has moved since.
// Must be called with s.mu held.
func (t *ledgerTx) stale() bool {
	for key, v := range t.reads {
		if t.s.versions[key] != v {
			return true
		}
	}
	return false
}

func (t *ledgerTx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.stale() {
		return repo.ErrConflict
	}
	for id, tx := range t.txns {
		s.txns[id] = tx
		s.bump(txnKey(id))
	}
	for id, u := range t.users {
		cur := s.users[id]
		cur = copyUser(cur)
		cur.MainBalance = u.MainBalance
		s.users[id] = cur
		s.bump(userKey(id))
	}
	for id, m := range t.merchants {
		s.merchants[id] = m
		s.bump(merchantKey(id))
	}
	return nil
}
