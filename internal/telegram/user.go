package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// AccountID is the account key derived from the Telegram user id.
func (u *WebAppUser) AccountID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Authenticate validates init data and returns the user it was issued for.
func Authenticate(initData, botToken string, now time.Time) (*WebAppUser, error) {
	user, _, err := AuthenticateValues(initData, botToken, now)
	return user, err
}

// AuthenticateValues is Authenticate that also returns the remaining launch
// parameters (start_param, chat_type, ...).
func AuthenticateValues(initData, botToken string, now time.Time) (*WebAppUser, url.Values, error) {
	values, err := ValidateInitData(initData, botToken, now)
	if err != nil {
		return nil, nil, err
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, nil, fmt.Errorf("%w: user: %v", ErrInvalidInitData, err)
	}
	if user.ID == 0 {
		return nil, nil, fmt.Errorf("%w: missing user id", ErrInvalidInitData)
	}
	return &user, values, nil
}

// ParseUnverified reads the user from init data without checking the hash.
// Only for DEV_MODE.
func ParseUnverified(initData string) (*WebAppUser, url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, nil, ErrInvalidInitData
	}
	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, nil, ErrInvalidInitData
	}
	return &user, values, nil
}
