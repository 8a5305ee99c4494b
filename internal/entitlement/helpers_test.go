package entitlement

import (
	"errors"
	"testing"
	"time"

	"zentari/internal/domain"
)

var t0 = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, r *Rules) *domain.Account {
	t.Helper()
	a := domain.NewAccount("1001", "alice", "", r.AccountDefaults(), t0)
	if err := a.Validate(r, t0); err != nil {
		t.Fatalf("fresh account invalid: %v", err)
	}
	return a
}

func wantErr(t *testing.T, err, target error) *domain.Error {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v; want %v", err, target)
	}
	e, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("err %T is not a *domain.Error", err)
	}
	return e
}
