package repository

import (
	"reflect"
	"testing"
	"time"
)

func TestAuditFilterWhere(t *testing.T) {
	since := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		f     AuditFilter
		where string
		args  []any
	}{
		{"empty", AuditFilter{}, "", nil},
		{"user", AuditFilter{UserID: "42"}, " WHERE user_id = $1", []any{"42"}},
		{
			"all",
			AuditFilter{UserID: "42", Category: "payment", Action: "bot_activate", Since: since},
			" WHERE user_id = $1 AND category = $2 AND action = $3 AND created_at >= $4",
			[]any{"42", "payment", "bot_activate", since},
		},
		{"category only", AuditFilter{Category: "invariant"}, " WHERE category = $1", []any{"invariant"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.f.where()
			if where != tt.where {
				t.Errorf("where = %q; want %q", where, tt.where)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("args = %v; want %v", args, tt.args)
			}
		})
	}
}
