package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zentari/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// AccountRepository stores accounts in PostgreSQL as a JSONB document next to
// the columns leaderboards sort on. Row locks (SELECT ... FOR UPDATE) give
// per-account serialization.
type AccountRepository struct {
	db     *pgxpool.Pool
	ledger *LedgerRepository
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db, ledger: NewLedgerRepository(db)}
}

func (r *AccountRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgAccountTx{tx: tx, ledger: r.ledger}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func decodeAccount(state []byte) (*domain.Account, error) {
	var a domain.Account
	if err := json.Unmarshal(state, &a); err != nil {
		return nil, fmt.Errorf("decode account state: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) Get(ctx context.Context, userID string) (*domain.Account, error) {
	var state []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM accounts WHERE user_id = $1`, userID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.With("user_id", userID)
		}
		return nil, err
	}
	return decodeAccount(state)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var state []byte
	err := r.db.QueryRow(ctx, `SELECT state FROM accounts WHERE lower(username) = lower($1)`, username).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.With("username", username)
		}
		return nil, err
	}
	return decodeAccount(state)
}

func (r *AccountRepository) top(ctx context.Context, orderBy string, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, username, power, referral_count
		FROM accounts
		ORDER BY `+orderBy+` DESC, created_at ASC, user_id ASC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []LeaderboardEntry
	rank := 1
	for rows.Next() {
		e := LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.Username, &e.Power, &e.Referrals); err != nil {
			return nil, err
		}
		res = append(res, e)
		rank++
	}
	return res, rows.Err()
}

// TopByPower returns accounts ordered by power desc
func (r *AccountRepository) TopByPower(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return r.top(ctx, "power", limit)
}

// TopByReferrals returns accounts ordered by direct referral count desc
func (r *AccountRepository) TopByReferrals(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return r.top(ctx, "referral_count", limit)
}

// PowerRank returns the user's rank in the power leaderboard
func (r *AccountRepository) PowerRank(ctx context.Context, userID string) (int, error) {
	var rank int
	err := r.db.QueryRow(ctx, `
		WITH ranked AS (
			SELECT user_id, RANK() OVER (ORDER BY power DESC) AS rank
			FROM accounts
		)
		SELECT rank FROM ranked WHERE user_id = $1
	`, userID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound.With("user_id", userID)
		}
		return 0, err
	}
	return rank, nil
}

func (r *AccountRepository) LedgerByUser(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	return r.ledger.GetByUserID(ctx, userID, limit)
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type pgAccountTx struct {
	tx     pgx.Tx
	ledger *LedgerRepository
}

func (t *pgAccountTx) GetForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	var state []byte
	err := t.tx.QueryRow(ctx, `SELECT state FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.With("user_id", userID)
		}
		return nil, err
	}
	return decodeAccount(state)
}

func (t *pgAccountTx) GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error) {
	var state []byte
	err := t.tx.QueryRow(ctx, `SELECT state FROM accounts WHERE lower(username) = lower($1) FOR UPDATE`, username).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound.With("username", username)
		}
		return nil, err
	}
	return decodeAccount(state)
}

func (t *pgAccountTx) Insert(ctx context.Context, a *domain.Account) error {
	state, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account state: %w", err)
	}
	var upline *string
	if a.Referral != "" {
		upline = &a.Referral
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO accounts (user_id, username, upline, power, referral_count, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.UserID, a.Username, upline, a.Power, a.DirectCount(), state, a.CreatedAt, a.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "accounts_username_key", "accounts_username_lower_key":
			return domain.ErrDuplicateUsername.With("username", a.Username)
		}
		return domain.ErrDuplicateUser.With("user_id", a.UserID)
	}
	return err
}

func (t *pgAccountTx) Update(ctx context.Context, a *domain.Account) error {
	state, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account state: %w", err)
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts
		 SET power = $2, referral_count = $3, state = $4, updated_at = $5
		 WHERE user_id = $1`,
		a.UserID, a.Power, a.DirectCount(), state, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound.With("user_id", a.UserID)
	}
	return nil
}

func (t *pgAccountTx) AppendLedger(ctx context.Context, entries ...domain.LedgerEntry) error {
	for i := range entries {
		if err := t.ledger.CreateWithTx(ctx, t.tx, &entries[i]); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
	}
	return nil
}
