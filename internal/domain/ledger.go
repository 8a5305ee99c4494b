package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerType is the business reason for a balance movement.
type LedgerType string

const (
	LedgerTapBatch         LedgerType = "tap"
	LedgerBotClaim         LedgerType = "bot_claim"
	LedgerBotActivation    LedgerType = "bot_activation"
	LedgerCheckIn          LedgerType = "check_in"
	LedgerUpgrade          LedgerType = "upgrade"
	LedgerUpgradeReward    LedgerType = "upgrade_reward"
	LedgerReferralDirect   LedgerType = "referral_direct"
	LedgerReferralIndirect LedgerType = "referral_indirect"
	LedgerReferralTier     LedgerType = "referral_tier"
	LedgerTaskReward       LedgerType = "task_reward"
)

// Currency names the balance a ledger entry moves.
type Currency string

const (
	CurrencyPower          Currency = "power"
	CurrencyCheckInPoints  Currency = "check_in_points"
	CurrencyReferralPoints Currency = "referral_points"
	CurrencyStars          Currency = "stars"
)

// LedgerEntry records one credit or debit. Amount is negative for spends.
type LedgerEntry struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Type      LedgerType     `db:"type" json:"type"`
	Currency  Currency       `db:"currency" json:"currency"`
	Amount    int64          `db:"amount" json:"amount"`
	Meta      map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// NewLedgerEntry stamps an entry with a fresh id.
func NewLedgerEntry(userID string, typ LedgerType, cur Currency, amount int64, meta map[string]any, at time.Time) LedgerEntry {
	return LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Currency:  cur,
		Amount:    amount,
		Meta:      meta,
		CreatedAt: at,
	}
}
