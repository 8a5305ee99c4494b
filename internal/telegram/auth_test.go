package telegram

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"
)

var now = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

// buildInitData signs fields the way Telegram does.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	vals.Set("hash", Sign(vals, botToken))
	return vals.Encode()
}

func TestAuthenticateValid(t *testing.T) {
	initData := buildInitData(t, "test-bot-token", map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F"}`,
	})

	user, err := Authenticate(initData, "test-bot-token", now)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.AccountID() != "1" || user.Username != "u" {
		t.Fatalf("user = %+v", user)
	}
}

func TestValidateInitDataRejects(t *testing.T) {
	fresh := strconv.FormatInt(now.Unix(), 10)
	valid := buildInitData(t, "test-bot-token", map[string]string{
		"auth_date": fresh,
		"user":      `{"id":1}`,
	})

	cases := []struct {
		name     string
		initData string
		token    string
		want     error
	}{
		{"tampered", valid + "&x=1", "test-bot-token", ErrInvalidInitData},
		{"wrong token", valid, "other-token", ErrInvalidInitData},
		{"missing hash", "auth_date=" + fresh, "test-bot-token", ErrInvalidInitData},
		{"stale", buildInitData(t, "test-bot-token", map[string]string{
			"auth_date": strconv.FormatInt(now.Add(-2*time.Hour).Unix(), 10),
		}), "test-bot-token", ErrStaleInitData},
		{"from the future", buildInitData(t, "test-bot-token", map[string]string{
			"auth_date": strconv.FormatInt(now.Add(time.Hour).Unix(), 10),
		}), "test-bot-token", ErrStaleInitData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateInitData(tc.initData, tc.token, now); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestAuthenticateRequiresUser(t *testing.T) {
	initData := buildInitData(t, "test-bot-token", map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	})
	if _, err := Authenticate(initData, "test-bot-token", now); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("err = %v", err)
	}
}
