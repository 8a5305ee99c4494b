// Package telegram verifies Telegram Mini App launch data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxInitDataAge bounds replay of captured init data.
	MaxInitDataAge = time.Hour
	maxClockSkew   = 5 * time.Minute
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrStaleInitData   = errors.New("init data expired")
)

func secretKey(botToken string) []byte {
	h := hmac.New(sha256.New, []byte("WebAppData"))
	h.Write([]byte(botToken))
	return h.Sum(nil)
}

// DataCheckString is the sorted key=value list Telegram signs, without hash.
func DataCheckString(values url.Values) string {
	var dataCheck []string
	for k, v := range values {
		if k == "hash" {
			continue
		}
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)
	return strings.Join(dataCheck, "\n")
}

// Sign computes the hex hash Telegram attaches to init data.
func Sign(values url.Values, botToken string) string {
	h := hmac.New(sha256.New, secretKey(botToken))
	h.Write([]byte(DataCheckString(values)))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateInitData verifies the init data HMAC and checks that auth_date is
// within MaxInitDataAge of now.
func ValidateInitData(initData, botToken string, now time.Time) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, ErrInvalidInitData
	}
	calculated, _ := hex.DecodeString(Sign(values, botToken))
	if !hmac.Equal(calculated, provided) {
		return nil, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > MaxInitDataAge || age < -maxClockSkew {
		return nil, ErrStaleInitData
	}

	values.Del("hash")
	return values, nil
}
