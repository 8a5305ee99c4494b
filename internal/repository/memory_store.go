package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"zentari/internal/domain"
)

// MemoryStore keeps accounts in process. Each account has a one-slot lock
// channel held for the lifetime of the transaction that loaded it; commits
// swap in the transaction's private copies.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	byName   map[string]string // username key -> user id, includes uncommitted inserts
	reserved map[string]bool   // user ids inserted by open transactions
	locks    map[string]chan struct{}
	ledger   map[string][]*domain.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*domain.Account),
		byName:   make(map[string]string),
		reserved: make(map[string]bool),
		locks:    make(map[string]chan struct{}),
		ledger:   make(map[string][]*domain.LedgerEntry),
	}
}

func (s *MemoryStore) lockFor(userID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[userID] = ch
	}
	return ch
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		s:      s,
		held:   make(map[string]chan struct{}),
		staged: make(map[string]*domain.Account),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound.With("user_id", userID)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[domain.UsernameKey(username)]; ok {
		if a, ok := s.accounts[id]; ok {
			return a.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound.With("username", username)
}

func (s *MemoryStore) ranked(less func(a, b *domain.Account) bool) []*domain.Account {
	s.mu.Lock()
	all := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	s.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		if less(all[i], all[j]) {
			return true
		}
		if less(all[j], all[i]) {
			return false
		}
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].UserID < all[j].UserID
	})
	return all
}

func (s *MemoryStore) top(limit int, less func(a, b *domain.Account) bool) []LeaderboardEntry {
	all := s.ranked(less)
	limit = clampLimit(limit)
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]LeaderboardEntry, len(all))
	for i, a := range all {
		out[i] = LeaderboardEntry{
			Rank:      i + 1,
			UserID:    a.UserID,
			Username:  a.Username,
			Power:     a.Power,
			Referrals: a.DirectCount(),
		}
	}
	return out
}

func (s *MemoryStore) TopByPower(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.top(limit, func(a, b *domain.Account) bool { return a.Power > b.Power }), nil
}

func (s *MemoryStore) TopByReferrals(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.top(limit, func(a, b *domain.Account) bool { return a.DirectCount() > b.DirectCount() }), nil
}

// PowerRank is 1 + the number of accounts with strictly more power.
func (s *MemoryStore) PowerRank(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me, ok := s.accounts[userID]
	if !ok {
		return 0, domain.ErrNotFound.With("user_id", userID)
	}
	rank := 1
	for _, a := range s.accounts {
		if a.Power > me.Power {
			rank++
		}
	}
	return rank, nil
}

func (s *MemoryStore) LedgerByUser(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.ledger[userID]
	limit = clampLimit(limit)
	out := make([]*domain.LedgerEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := *entries[i]
		out = append(out, &e)
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryTx struct {
	s        *MemoryStore
	held     map[string]chan struct{}
	staged   map[string]*domain.Account
	inserted []*domain.Account
	ledger   []domain.LedgerEntry
}

func (tx *memoryTx) lock(ctx context.Context, userID string) error {
	if _, ok := tx.held[userID]; ok {
		return nil
	}
	ch := tx.s.lockFor(userID)
	select {
	case ch <- struct{}{}:
		tx.held[userID] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (tx *memoryTx) unlock(userID string) {
	if ch, ok := tx.held[userID]; ok {
		<-ch
		delete(tx.held, userID)
	}
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	if a, ok := tx.staged[userID]; ok {
		return a.Clone(), nil
	}
	if err := tx.lock(ctx, userID); err != nil {
		return nil, err
	}
	tx.s.mu.Lock()
	a, ok := tx.s.accounts[userID]
	tx.s.mu.Unlock()
	if !ok {
		tx.unlock(userID)
		return nil, domain.ErrNotFound.With("user_id", userID)
	}
	tx.staged[userID] = a.Clone()
	return a.Clone(), nil
}

func (tx *memoryTx) GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error) {
	tx.s.mu.Lock()
	id, ok := tx.s.byName[domain.UsernameKey(username)]
	if ok && tx.s.reserved[id] {
		ok = false
	}
	tx.s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound.With("username", username)
	}
	return tx.GetForUpdate(ctx, id)
}

func (tx *memoryTx) Insert(ctx context.Context, a *domain.Account) error {
	tx.s.mu.Lock()
	if _, ok := tx.s.accounts[a.UserID]; ok || tx.s.reserved[a.UserID] {
		tx.s.mu.Unlock()
		return domain.ErrDuplicateUser.With("user_id", a.UserID)
	}
	if _, ok := tx.s.byName[domain.UsernameKey(a.Username)]; ok {
		tx.s.mu.Unlock()
		return domain.ErrDuplicateUsername.With("username", a.Username)
	}
	tx.s.reserved[a.UserID] = true
	tx.s.byName[domain.UsernameKey(a.Username)] = a.UserID
	tx.s.mu.Unlock()

	c := a.Clone()
	tx.inserted = append(tx.inserted, c)
	if err := tx.lock(ctx, a.UserID); err != nil {
		return err
	}
	tx.staged[a.UserID] = c
	return nil
}

func (tx *memoryTx) Update(ctx context.Context, a *domain.Account) error {
	if _, ok := tx.held[a.UserID]; !ok {
		return domain.Violation("update of account %s not loaded for update", a.UserID)
	}
	tx.staged[a.UserID] = a.Clone()
	return nil
}

func (tx *memoryTx) AppendLedger(ctx context.Context, entries ...domain.LedgerEntry) error {
	tx.ledger = append(tx.ledger, entries...)
	return nil
}

func (tx *memoryTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for id, a := range tx.staged {
		tx.s.accounts[id] = a
		delete(tx.s.reserved, id)
	}
	for i := range tx.ledger {
		e := tx.ledger[i]
		tx.s.ledger[e.UserID] = append(tx.s.ledger[e.UserID], &e)
	}
}

func (tx *memoryTx) rollback() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for _, a := range tx.inserted {
		delete(tx.s.reserved, a.UserID)
		if tx.s.byName[domain.UsernameKey(a.Username)] == a.UserID {
			delete(tx.s.byName, domain.UsernameKey(a.Username))
		}
	}
}

func (tx *memoryTx) release() {
	for _, id := range slices.Collect(maps.Keys(tx.held)) {
		tx.unlock(id)
	}
}
