package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminService answers operator queries that span every account. It reads
// Postgres directly and never mutates.
type AdminService struct {
	db *pgxpool.Pool
}

// NewAdminService creates a new admin service
func NewAdminService(db *pgxpool.Pool) *AdminService {
	return &AdminService{db: db}
}

// Stats represents platform statistics
type Stats struct {
	TotalAccounts      int64 `json:"total_accounts"`
	NewAccountsToday   int64 `json:"new_accounts_today"`
	ActiveAccountsDay  int64 `json:"active_accounts_today"` // any ledger movement
	ActiveAccountsWeek int64 `json:"active_accounts_week"`
	TotalPower         int64 `json:"total_power"`
	TotalReferrals     int64 `json:"total_referrals"`
	PowerMintedToday   int64 `json:"power_minted_today"`
	StarsSpent         int64 `json:"stars_spent"`
	StarsSpentToday    int64 `json:"stars_spent_today"`
	PendingTasks       int64 `json:"pending_task_completions"`
	Violations         int64 `json:"invariant_violations"`
}

// GetStats returns platform statistics. Days are UTC days.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	weekAgo := today.Add(-7 * 24 * time.Hour)

	queries := []struct {
		dst  *int64
		sql  string
		args []any
	}{
		{&stats.TotalAccounts, `SELECT COUNT(*) FROM accounts`, nil},
		{&stats.NewAccountsToday, `SELECT COUNT(*) FROM accounts WHERE created_at >= $1`, []any{today}},
		{&stats.ActiveAccountsDay, `SELECT COUNT(DISTINCT user_id) FROM ledger_entries WHERE created_at >= $1`, []any{today}},
		{&stats.ActiveAccountsWeek, `SELECT COUNT(DISTINCT user_id) FROM ledger_entries WHERE created_at >= $1`, []any{weekAgo}},
		{&stats.TotalPower, `SELECT COALESCE(SUM(power), 0) FROM accounts`, nil},
		{&stats.TotalReferrals, `SELECT COALESCE(SUM(referral_count), 0) FROM accounts`, nil},
		{&stats.PowerMintedToday, `
			SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
			WHERE currency = 'power' AND amount > 0 AND created_at >= $1
		`, []any{today}},
		{&stats.StarsSpent, `
			SELECT COALESCE(-SUM(amount), 0) FROM ledger_entries
			WHERE currency = 'stars' AND amount < 0
		`, nil},
		{&stats.StarsSpentToday, `
			SELECT COALESCE(-SUM(amount), 0) FROM ledger_entries
			WHERE currency = 'stars' AND amount < 0 AND created_at >= $1
		`, []any{today}},
		{&stats.PendingTasks, `SELECT COUNT(*) FROM task_completions WHERE NOT processed`, nil},
		{&stats.Violations, `SELECT COUNT(*) FROM audit_logs WHERE category = 'invariant'`, nil},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(ctx, q.sql, q.args...).Scan(q.dst); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// CurrencyTotal sums one account's ledger for a currency.
type CurrencyTotal struct {
	Currency string `json:"currency"`
	Credited int64  `json:"credited"`
	Debited  int64  `json:"debited"`
	Entries  int64  `json:"entries"`
}

// LedgerTotals returns per-currency credit and debit totals for userID. For
// power the credited total minus debits must equal the stored balance.
func (s *AdminService) LedgerTotals(ctx context.Context, userID string) ([]CurrencyTotal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT currency,
		       COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0),
		       COUNT(*)
		FROM ledger_entries
		WHERE user_id = $1
		GROUP BY currency
		ORDER BY currency
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []CurrencyTotal
	for rows.Next() {
		var t CurrencyTotal
		if err := rows.Scan(&t.Currency, &t.Credited, &t.Debited, &t.Entries); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
