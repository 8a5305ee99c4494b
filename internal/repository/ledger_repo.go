package repository

import (
	"context"
	"encoding/json"

	"zentari/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetByUserID returns recent ledger entries for a user, newest first
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, currency, amount, meta, created_at
		 FROM ledger_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLedgerRows(rows)
}

// CreateWithTx inserts an entry using an existing database transaction
func (r *LedgerRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, e *domain.LedgerEntry) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil || e.Meta == nil {
		metaJSON = []byte("{}")
	}

	_, err = dbTx.Exec(ctx,
		`INSERT INTO ledger_entries (id, user_id, type, currency, amount, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Type, e.Currency, e.Amount, metaJSON, e.CreatedAt,
	)
	return err
}

func scanLedgerRows(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var result []*domain.LedgerEntry

	for rows.Next() {
		var (
			e        domain.LedgerEntry
			metaJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Currency, &e.Amount, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Meta)
		}
		result = append(result, &e)
	}

	return result, rows.Err()
}
