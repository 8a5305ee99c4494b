package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestFeedURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
		err    bool
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws?token=abc", false},
		{"https://api.example.com/", "wss://api.example.com/ws?token=abc", false},
		{"https://api.example.com/game", "wss://api.example.com/game/ws?token=abc", false},
		{"ftp://example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := feedURL(tt.server, "abc")
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMigrateList(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "list"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("migrate list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) == 0 || lines[0] != "001_accounts.sql" {
		t.Errorf("unexpected listing: %q", out.String())
	}
}

func TestAccountTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	rootCmd.SetArgs([]string{"account", "token", "42"})
	rootCmd.SetOut(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestStatsIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "apply"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("migrate apply: %v", err)
	}

	out.Reset()
	rootCmd.SetArgs([]string{"stats"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), "Accounts") {
		t.Errorf("unexpected stats output: %q", out.String())
	}
}
