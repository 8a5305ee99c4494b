package repository

import (
	"context"

	"zentari/internal/domain"
)

// Store persists accounts. Mutations run inside InTx: every account read with
// GetForUpdate stays locked against other transactions until fn returns, and
// all writes of one call commit atomically or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Get(ctx context.Context, userID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	TopByPower(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	TopByReferrals(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	PowerRank(ctx context.Context, userID string) (int, error)

	LedgerByUser(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error)

	Ping(ctx context.Context) error
}

// Tx is the write side of a store transaction.
type Tx interface {
	GetForUpdate(ctx context.Context, userID string) (*domain.Account, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error)
	Insert(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
	AppendLedger(ctx context.Context, entries ...domain.LedgerEntry) error
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Power     int64  `json:"power"`
	Referrals int    `json:"referrals"`
}

const defaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
