package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zentari/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository stores the append-only audit trail.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an entry. Nil details are stored as an empty object.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	details := []byte("{}")
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO audit_logs (user_id, action, category, details, ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		entry.UserID, entry.Action, entry.Category, details, entry.IP, entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// AuditFilter narrows List. Zero fields match everything.
type AuditFilter struct {
	UserID   string
	Category string
	Action   string
	Since    time.Time
	Limit    int
}

func (f AuditFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns matching entries, newest first.
func (r *AuditRepository) List(ctx context.Context, f AuditFilter) ([]*domain.AuditLog, error) {
	where, args := f.where()
	args = append(args, clampLimit(f.Limit))
	query := `SELECT id, user_id, action, category, details, ip, user_agent, created_at
		FROM audit_logs` + where + fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditLog, error) {
		var (
			e       domain.AuditLog
			details []byte
		)
		if err := row.Scan(&e.ID, &e.UserID, &e.Action, &e.Category, &details, &e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit %d details: %w", e.ID, err)
		}
		return &e, nil
	})
}
