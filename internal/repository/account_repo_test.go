package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"zentari/internal/domain"
	"zentari/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestAccountRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(context.Background(), db, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	runStoreSuite(t, NewAccountRepository(db))
}

func TestAuditRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer db.Close()
	if err := migrations.Apply(ctx, db, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	repo := NewAuditRepository(db)
	user := "audit-" + time.Now().Format("150405.000000000")
	for _, action := range []string{domain.AuditActionLogin, domain.AuditActionBotActivate} {
		e := &domain.AuditLog{UserID: user, Action: action, Category: domain.AuditCategoryPayment,
			Details: map[string]any{"stars": 100}}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
		if e.ID == 0 || e.CreatedAt.IsZero() {
			t.Fatalf("create did not return id/created_at: %+v", e)
		}
	}

	logs, err := repo.List(ctx, AuditFilter{UserID: user, Action: domain.AuditActionBotActivate})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Details["stars"] != float64(100) {
		t.Fatalf("list = %+v", logs)
	}

	logs, err = repo.List(ctx, AuditFilter{UserID: user, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != domain.AuditActionBotActivate {
		t.Fatalf("expected newest first, got %+v", logs)
	}
}
