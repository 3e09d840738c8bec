// Package memory is an in-process backend with optimistic concurrency.
//
// Every record carries a version. An atomic unit remembers the version of each
// record it reads and buffers its writes; at commit it takes the store lock,
// checks that none of the records it read have moved, applies the writes and
// bumps their versions. A moved record aborts the unit with ErrConflict.
// A unit that fails is checked the same way, so its error never describes a
// mix of states that did not exist together.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/paycore/internal/models"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]models.User
	cards     map[string]string // card number -> user id
	merchants map[string]models.Merchant
	txns      map[string]models.Transaction
	audit     []models.AuditLog
	versions  map[string]uint64
}

func New() *Store {
	return &Store{
		users:     map[string]models.User{},
		cards:     map[string]string{},
		merchants: map[string]models.Merchant{},
		txns:      map[string]models.Transaction{},
		versions:  map[string]uint64{},
	}
}

func (s *Store) Repositories() repo.Repositories {
	return repo.Repositories{
		Users:        usersRepo{s},
		Merchants:    merchantsRepo{s},
		Transactions: transactionsRepo{s},
		AuditLogs:    auditLogsRepo{s},
	}
}

// AuditLogs returns a copy of everything logged so far.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}

func userKey(id string) string     { return "user:" + id }
func cardKey(n string) string      { return "card:" + n }
func merchantKey(id string) string { return "merchant:" + id }
func txnKey(id string) string      { return "txn:" + id }

// bump must be called with mu held for writing.
func (s *Store) bump(keys ...string) {
	for _, k := range keys {
		s.versions[k]++
	}
}

func copyUser(u models.User) models.User {
	u.Cards = append([]models.Card(nil), u.Cards...)
	return u
}

// ---------- users ----------

type usersRepo struct{ s *Store }

func (r usersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := s.users[u.ID]; ok {
		return models.User{}, repo.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.AccountNumber == u.AccountNumber {
			return models.User{}, repo.ErrDuplicate
		}
	}
	for _, c := range u.Cards {
		if _, taken := s.cards[c.Number]; taken {
			return models.User{}, repo.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	for i := range u.Cards {
		if u.Cards[i].CreatedAt.IsZero() {
			u.Cards[i].CreatedAt = now
		}
		s.cards[u.Cards[i].Number] = u.ID
		s.bump(cardKey(u.Cards[i].Number))
	}
	u = copyUser(u)
	s.users[u.ID] = u
	s.bump(userKey(u.ID))
	return copyUser(u), nil
}

func (r usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return copyUser(u), nil
}

func (r usersRepo) AddCard(_ context.Context, userID string, c models.Card) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	if _, taken := s.cards[c.Number]; taken {
		return repo.ErrDuplicate
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	u = copyUser(u)
	u.Cards = append(u.Cards, c)
	s.users[userID] = u
	s.cards[c.Number] = userID
	s.bump(userKey(userID), cardKey(c.Number))
	return nil
}

func (r usersRepo) RemoveCard(_ context.Context, userID, number string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.cards[number]; !ok || owner != userID {
		return repo.ErrNotFound
	}
	u := copyUser(s.users[userID])
	kept := u.Cards[:0]
	for _, c := range u.Cards {
		if c.Number != number {
			kept = append(kept, c)
		}
	}
	u.Cards = kept
	s.users[userID] = u
	delete(s.cards, number)
	s.bump(userKey(userID), cardKey(number))
	return nil
}

func (r usersRepo) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	return r.update(id, func(u *models.User) { u.Status = status })
}

func (r usersRepo) UpdatePINHash(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) { u.PINHash = hash })
}

func (r usersRepo) update(id string, fn func(*models.User)) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u = copyUser(u)
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	s.bump(userKey(id))
	return nil
}

// ---------- merchants ----------

type merchantsRepo struct{ s *Store }

func (r merchantsRepo) Create(_ context.Context, m models.Merchant) (models.Merchant, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if _, ok := s.merchants[m.ID]; ok {
		return models.Merchant{}, repo.ErrDuplicate
	}
	for _, existing := range s.merchants {
		if existing.Email == m.Email {
			return models.Merchant{}, repo.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.merchants[m.ID] = m
	s.bump(merchantKey(m.ID))
	return m, nil
}

func (r merchantsRepo) GetByID(_ context.Context, id string) (models.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.merchants[id]
	if !ok {
		return models.Merchant{}, repo.ErrNotFound
	}
	return m, nil
}

func (r merchantsRepo) UpdateWebhook(_ context.Context, id, url string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[id]
	if !ok {
		return repo.ErrNotFound
	}
	m.WebhookURL = url
	m.UpdatedAt = time.Now().UTC()
	s.merchants[id] = m
	s.bump(merchantKey(id))
	return nil
}

// ---------- audit ----------

type auditLogsRepo struct{ s *Store }

func (r auditLogsRepo) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	r.s.audit = append(r.s.audit, l)
	return nil
}

// ---------- transactions ----------

type transactionsRepo struct{ s *Store }

func (r transactionsRepo) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.txns[t.ID]; ok {
		return models.Transaction{}, repo.ErrDuplicate
	}
	if t.HasMerchant() {
		if _, ok := s.merchants[*t.MerchantID]; !ok {
			return models.Transaction{}, repo.ErrNotFound
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.txns[t.ID] = t
	s.bump(txnKey(t.ID))
	return t, nil
}

func (r transactionsRepo) GetByID(_ context.Context, id string) (models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txns[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (r transactionsRepo) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	r.s.mu.RLock()
	var out []models.Transaction
	for _, t := range r.s.txns {
		if t.HasMerchant() && *t.MerchantID == merchantID {
			out = append(out, t)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r transactionsRepo) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	r.s.mu.RLock()
	var pending []models.Transaction
	for _, t := range r.s.txns {
		if t.Status == models.TxnPending && t.CreatedAt.Before(cutoff) {
			pending = append(pending, t)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	ids := make([]string, 0, len(pending))
	for _, t := range pending {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (r transactionsRepo) WithTx(ctx context.Context, fn func(repo.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newLedgerTx(r.s)
	if err := fn(tx); err != nil {
		r.s.mu.RLock()
		stale := tx.stale()
		r.s.mu.RUnlock()
		if stale {
			return repo.ErrConflict
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}
