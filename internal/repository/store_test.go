package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"zentari/internal/domain"

	"github.com/google/uuid"
)

var testNow = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestAccount(prefix string) *domain.Account {
	id := prefix + "-" + uuid.NewString()[:8]
	return domain.NewAccount(id, id, "", domain.AccountDefaults{
		MaxEnergy: 500,
		Tiers:     []domain.ReferralReward{{ReferralsRequired: 5, RewardAmount: 1000}},
	}, testNow)
}

func insert(t *testing.T, s Store, a *domain.Account) {
	t.Helper()
	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, a)
	})
	if err != nil {
		t.Fatalf("insert %s: %v", a.UserID, err)
	}
}

// runStoreSuite checks the contract every Store implementation must honour.
func runStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		a := newTestAccount("get")
		insert(t, s, a)
		got, err := s.Get(ctx, a.UserID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Username != a.Username || got.Energy != 500 || len(got.ReferralRewards) != 1 {
			t.Fatalf("got %+v", got)
		}
		byName, err := s.GetByUsername(ctx, a.Username)
		if err != nil || byName.UserID != a.UserID {
			t.Fatalf("GetByUsername = %v, %v", byName, err)
		}
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := s.Get(ctx, "nobody-"+uuid.NewString())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
		err = s.InTx(ctx, func(ctx context.Context, tx Tx) error {
			_, err := tx.GetForUpdate(ctx, "nobody")
			return err
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetForUpdate err = %v", err)
		}
	})

	t.Run("duplicates", func(t *testing.T) {
		a := newTestAccount("dup")
		insert(t, s, a)

		sameID := a.Clone()
		sameID.Username = a.Username + "-other"
		err := s.InTx(ctx, func(ctx context.Context, tx Tx) error { return tx.Insert(ctx, sameID) })
		if !errors.Is(err, domain.ErrDuplicateUser) {
			t.Fatalf("same id err = %v", err)
		}

		sameName := newTestAccount("dup")
		sameName.Username = a.Username
		err = s.InTx(ctx, func(ctx context.Context, tx Tx) error { return tx.Insert(ctx, sameName) })
		if !errors.Is(err, domain.ErrDuplicateUsername) {
			t.Fatalf("same username err = %v", err)
		}

		otherCase := newTestAccount("dup")
		otherCase.Username = strings.ToUpper(a.Username)
		err = s.InTx(ctx, func(ctx context.Context, tx Tx) error { return tx.Insert(ctx, otherCase) })
		if !errors.Is(err, domain.ErrDuplicateUsername) {
			t.Fatalf("username differing in case err = %v", err)
		}
	})

	t.Run("username lookup ignores case", func(t *testing.T) {
		a := newTestAccount("Case")
		insert(t, s, a)

		for _, name := range []string{a.Username, strings.ToLower(a.Username), strings.ToUpper(a.Username)} {
			got, err := s.GetByUsername(ctx, name)
			if err != nil || got.UserID != a.UserID {
				t.Fatalf("GetByUsername(%q) = %v, %v", name, got, err)
			}
			err = s.InTx(ctx, func(ctx context.Context, tx Tx) error {
				got, err := tx.GetByUsernameForUpdate(ctx, name)
				if err == nil && got.UserID != a.UserID {
					t.Errorf("GetByUsernameForUpdate(%q) = %s", name, got.UserID)
				}
				return err
			})
			if err != nil {
				t.Fatalf("GetByUsernameForUpdate(%q): %v", name, err)
			}
		}
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		a := newTestAccount("rb")
		insert(t, s, a)
		ghost := newTestAccount("ghost")
		boom := errors.New("boom")

		err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
			acc, err := tx.GetForUpdate(ctx, a.UserID)
			if err != nil {
				return err
			}
			acc.Power = 999
			if err := tx.Update(ctx, acc); err != nil {
				return err
			}
			if err := tx.Insert(ctx, ghost); err != nil {
				return err
			}
			if err := tx.AppendLedger(ctx, domain.NewLedgerEntry(a.UserID, domain.LedgerTapBatch, domain.CurrencyPower, 999, nil, testNow)); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		got, _ := s.Get(ctx, a.UserID)
		if got.Power != 0 {
			t.Fatalf("power = %d after rollback", got.Power)
		}
		if _, err := s.Get(ctx, ghost.UserID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("rolled back insert visible: %v", err)
		}
		if entries, _ := s.LedgerByUser(ctx, a.UserID, 10); len(entries) != 0 {
			t.Fatalf("rolled back ledger visible: %v", entries)
		}
		// the username is free again
		insert(t, s, ghost)
	})

	t.Run("ledger newest first", func(t *testing.T) {
		a := newTestAccount("ledger")
		insert(t, s, a)
		err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.AppendLedger(ctx,
				domain.NewLedgerEntry(a.UserID, domain.LedgerTapBatch, domain.CurrencyPower, 5, map[string]any{"taps": 5}, testNow),
				domain.NewLedgerEntry(a.UserID, domain.LedgerCheckIn, domain.CurrencyCheckInPoints, 100, nil, testNow.Add(time.Second)),
			)
		})
		if err != nil {
			t.Fatal(err)
		}
		entries, err := s.LedgerByUser(ctx, a.UserID, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 || entries[0].Type != domain.LedgerCheckIn || entries[1].Amount != 5 {
			t.Fatalf("entries = %+v", entries)
		}
	})

	t.Run("concurrent increments are serialized", func(t *testing.T) {
		a := newTestAccount("conc")
		insert(t, s, a)

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
					acc, err := tx.GetForUpdate(ctx, a.UserID)
					if err != nil {
						return err
					}
					acc.Power++
					return tx.Update(ctx, acc)
				})
				if err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		got, _ := s.Get(ctx, a.UserID)
		if got.Power != workers {
			t.Fatalf("power = %d; want %d", got.Power, workers)
		}
	})

	t.Run("leaderboards", func(t *testing.T) {
		rich := newTestAccount("rich")
		rich.Power = 1<<50 + time.Now().UnixNano()
		insert(t, s, rich)

		top, err := s.TopByPower(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(top) != 1 || top[0].UserID != rich.UserID || top[0].Rank != 1 {
			t.Fatalf("top = %+v", top)
		}
		rank, err := s.PowerRank(ctx, rich.UserID)
		if err != nil || rank != 1 {
			t.Fatalf("rank = %d, %v", rank, err)
		}
		if _, err := s.TopByReferrals(ctx, 5); err != nil {
			t.Fatal(err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestMemoryStoreLockHonoursContext(t *testing.T) {
	s := NewMemoryStore()
	a := newTestAccount("ctx")
	insert(t, s, a)

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
			if _, err := tx.GetForUpdate(ctx, a.UserID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.GetForUpdate(ctx, a.UserID)
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v; want deadline exceeded", err)
	}
}

func TestMemoryStoreCancelledBeforeCommit(t *testing.T) {
	s := NewMemoryStore()
	a := newTestAccount("cancel")
	insert(t, s, a)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.InTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := tx.GetForUpdate(ctx, a.UserID)
		if err != nil {
			return err
		}
		acc.Power = 10
		if err := tx.Update(ctx, acc); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if got, _ := s.Get(context.Background(), a.UserID); got.Power != 0 {
		t.Fatalf("cancelled transaction committed power %d", got.Power)
	}
}

func TestMemoryStoreUpdateRequiresLock(t *testing.T) {
	s := NewMemoryStore()
	a := newTestAccount("nolock")
	insert(t, s, a)
	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Update(ctx, a)
	})
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
}
