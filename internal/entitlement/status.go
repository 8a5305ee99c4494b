package entitlement

import (
	"time"

	"zentari/internal/domain"
)

// EnergyView is energy recomputed at read time.
type EnergyView struct {
	Current          int64 `json:"current"`
	Max              int64 `json:"max"`
	RegenIntervalMs  int64 `json:"regen_interval_ms"`
	SecondsToFull    int64 `json:"seconds_to_full"`
	SecondsToNextTap int64 `json:"seconds_to_next_tap"`
}

// BotView is the read-only auto-tap bot state.
type BotView struct {
	Active       bool       `json:"active"`
	Tier         string     `json:"tier,omitempty"`
	Mining       bool       `json:"mining"`
	WindowStart  *time.Time `json:"window_start,omitempty"`
	WindowEnd    *time.Time `json:"window_end,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	LastClaimed  *time.Time `json:"last_claimed,omitempty"`
	PendingTaps  int64      `json:"pending_taps"`
	PendingPower int64      `json:"pending_power"`
	Capped       bool       `json:"capped"`
}

// BotStatus reports the bot window and what a claim at now would credit.
func (r *Rules) BotStatus(a *domain.Account, now time.Time) BotView {
	bot := a.AutoTapBot
	if !bot.IsActive {
		return BotView{}
	}
	acc := r.PendingBot(a, now)
	v := BotView{
		Active:       true,
		Tier:         bot.Level,
		Mining:       acc.Mining,
		PendingTaps:  acc.Taps,
		PendingPower: acc.Power,
		Capped:       acc.Capped,
	}
	start, end, valid, last := acc.Window.Start, acc.Window.End, bot.ValidUntil, bot.LastClaimed
	v.WindowStart, v.WindowEnd, v.ValidUntil, v.LastClaimed = &start, &end, &valid, &last
	return v
}

type Balances struct {
	Power          int64 `json:"power"`
	CheckInPoints  int64 `json:"check_in_points"`
	ReferralPoints int64 `json:"referral_points"`
	TotalPoints    int64 `json:"total_points"`
	Stars          int64 `json:"stars"`
}

type Levels struct {
	Speed       int `json:"speed"`
	MultiTap    int `json:"multi_tap"`
	EnergyLimit int `json:"energy_limit"`
}

// Status is a full read-only snapshot of an account at a point in time.
type Status struct {
	UserID        string                 `json:"user_id"`
	Username      string                 `json:"username"`
	RulesVersion  string                 `json:"rules_version"`
	At            time.Time              `json:"at"`
	Balances      Balances               `json:"balances"`
	Levels        Levels                 `json:"levels"`
	TapPower      int64                  `json:"tap_power"`
	Energy        EnergyView             `json:"energy"`
	Bot           BotView                `json:"auto_tap_bot"`
	CheckIn       CheckInView            `json:"check_in"`
	Upgrades      []UpgradeView          `json:"upgrades"`
	Referrals     int                    `json:"referrals"`
	ClaimableTier *domain.ReferralReward `json:"claimable_tier,omitempty"`
	Statistics    domain.Statistics      `json:"statistics"`
}

// Snapshot computes the status of a at now without mutating it.
func (r *Rules) Snapshot(a *domain.Account, now time.Time) Status {
	st := r.EffectiveEnergy(a, now)
	s := Status{
		UserID:       a.UserID,
		Username:     a.Username,
		RulesVersion: r.Version,
		At:           now,
		Balances: Balances{
			Power:          a.Power,
			CheckInPoints:  a.CheckInPoints,
			ReferralPoints: a.ReferralPoints,
			TotalPoints:    a.TotalPoints(),
			Stars:          a.Stars,
		},
		Levels: Levels{
			Speed:       a.SpeedLevel,
			MultiTap:    a.MultiTapLevel,
			EnergyLimit: a.EnergyLimitLevel,
		},
		TapPower: r.TapPower(a.MultiTapLevel),
		Energy: EnergyView{
			Current:          st.Energy,
			Max:              st.MaxEnergy,
			RegenIntervalMs:  r.RegenInterval(a.SpeedLevel).Milliseconds(),
			SecondsToFull:    ceilSeconds(r.TimeToEnergy(a, now, a.MaxEnergy)),
			SecondsToNextTap: ceilSeconds(r.TimeToEnergy(a, now, r.Energy.TapCost)),
		},
		Bot:        r.BotStatus(a, now),
		CheckIn:    r.CheckInStatus(a, now),
		Upgrades:   r.UpgradeCosts(a),
		Referrals:  a.DirectCount(),
		Statistics: a.Statistics,
	}
	if t, ok := ClaimableTier(a); ok {
		s.ClaimableTier = &t
	}
	return s
}
