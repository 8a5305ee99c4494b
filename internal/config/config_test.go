package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.JWTTTL != 24*time.Hour || cfg.APIRateWindow != time.Minute {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ACTION_RATE_WINDOW", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.ActionRateWindow != 30*time.Second {
		t.Fatalf("action window = %v", cfg.ActionRateWindow)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"postgres needs url", Config{StoreDriver: StorePostgres, JWTSecret: "s", BotToken: "b", APIRateLimit: 1, AuthRateLimit: 1, ActionRateLimit: 1}, "DATABASE_URL"},
		{"unknown driver", Config{StoreDriver: "mongo", JWTSecret: "s", BotToken: "b", APIRateLimit: 1, AuthRateLimit: 1, ActionRateLimit: 1}, "STORE_DRIVER"},
		{"missing secret", Config{StoreDriver: StoreMemory, BotToken: "b", APIRateLimit: 1, AuthRateLimit: 1, ActionRateLimit: 1}, "JWT_SECRET"},
		{"bot without token", Config{StoreDriver: StoreMemory, JWTSecret: "s", DevMode: true, TelegramBotEnabled: true, APIRateLimit: 1, AuthRateLimit: 1, ActionRateLimit: 1}, "TELEGRAM_BOT_ENABLED"},
		{"zero limit", Config{StoreDriver: StoreMemory, JWTSecret: "s", BotToken: "b"}, "rate limits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v; want mention of %q", err, tc.want)
			}
		})
	}
}
