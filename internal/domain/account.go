package domain

import (
	"slices"
	"strings"
	"time"
)

// Level bounds for every progression track.
const (
	MinLevel = 1
	MaxLevel = 8
)

// Track is an upgradable progression line.
type Track string

const (
	TrackSpeed       Track = "speed"
	TrackMultiTap    Track = "multiTap"
	TrackEnergyLimit Track = "energyLimit"
)

// Tracks lists every track in display order.
var Tracks = []Track{TrackSpeed, TrackMultiTap, TrackEnergyLimit}

func (t Track) Valid() bool {
	return t == TrackSpeed || t == TrackMultiTap || t == TrackEnergyLimit
}

// Limits is the slice of the rules table the aggregate needs to check its
// invariants.
type Limits interface {
	MaxEnergy(energyLimitLevel int) int64
	ReferralThresholds() []int
}

// AutoTapBot is the idle accrual state. The mining window of the current
// session is [SessionStart, min(SessionStart+duration, ValidUntil)] and
// LastClaimed is the accrual checkpoint inside it.
type AutoTapBot struct {
	Level        string    `json:"level"`
	SessionStart time.Time `json:"sessionStart"`
	ValidUntil   time.Time `json:"validUntil"`
	LastClaimed  time.Time `json:"lastClaimed"`
	IsActive     bool      `json:"isActive"`
}

// Statistics are denormalized counters, never authoritative.
type Statistics struct {
	TotalTaps            int64 `json:"totalTaps"`
	TotalPowerGenerated  int64 `json:"totalPowerGenerated"`
	TotalCheckIns        int64 `json:"totalCheckIns"`
	LongestCheckInStreak int   `json:"longestCheckInStreak"`
}

// Account is one player's mutable game state.
type Account struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	Energy      int64     `json:"energy"`
	MaxEnergy   int64     `json:"maxEnergy"`
	LastTapTime time.Time `json:"lastTapTime"`

	Power          int64 `json:"power"`
	CheckInPoints  int64 `json:"checkInPoints"`
	ReferralPoints int64 `json:"referralPoints"`
	Stars          int64 `json:"stars"`

	SpeedLevel       int `json:"speedLevel"`
	MultiTapLevel    int `json:"multiTapLevel"`
	EnergyLimitLevel int `json:"energyLimitLevel"`

	AutoTapBot AutoTapBot `json:"autoTapBot"`

	LastCheckIn   *time.Time `json:"lastCheckIn,omitempty"`
	CheckInStreak int        `json:"checkInStreak"`

	Referral          string             `json:"referral,omitempty"`
	DirectReferrals   []DirectReferral   `json:"directReferrals"`
	IndirectReferrals []IndirectReferral `json:"indirectReferrals"`
	ReferralRewards   []ReferralReward   `json:"referralRewards"`

	TasksCompleted []int64    `json:"tasksCompleted"`
	Statistics     Statistics `json:"statistics"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountDefaults are the starting values handed out at registration.
type AccountDefaults struct {
	MaxEnergy int64
	Stars     int64
	Tiers     []ReferralReward
}

// UsernameKey is the form usernames are compared and indexed by: trimmed and
// case-folded, so "Alice" and "alice" name the same account.
func UsernameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewAccount builds a freshly registered account with a full energy pool.
func NewAccount(userID, username, upline string, d AccountDefaults, now time.Time) *Account {
	tiers := make([]ReferralReward, len(d.Tiers))
	for i, t := range d.Tiers {
		tiers[i] = ReferralReward{ReferralsRequired: t.ReferralsRequired, RewardAmount: t.RewardAmount}
	}
	return &Account{
		UserID:            userID,
		Username:          username,
		Energy:            d.MaxEnergy,
		MaxEnergy:         d.MaxEnergy,
		LastTapTime:       now,
		Stars:             d.Stars,
		SpeedLevel:        MinLevel,
		MultiTapLevel:     MinLevel,
		EnergyLimitLevel:  MinLevel,
		Referral:          upline,
		DirectReferrals:   []DirectReferral{},
		IndirectReferrals: []IndirectReferral{},
		ReferralRewards:   tiers,
		TasksCompleted:    []int64{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TotalPoints is a derived view; only Power is spendable.
func (a *Account) TotalPoints() int64 {
	return a.Power + a.CheckInPoints + a.ReferralPoints
}

// Level returns the current level of a track.
func (a *Account) Level(t Track) int {
	switch t {
	case TrackSpeed:
		return a.SpeedLevel
	case TrackMultiTap:
		return a.MultiTapLevel
	case TrackEnergyLimit:
		return a.EnergyLimitLevel
	}
	return 0
}

// Validate checks every invariant binding the account's fields together.
func (a *Account) Validate(limits Limits, now time.Time) error {
	for _, t := range Tracks {
		if l := a.Level(t); l < MinLevel || l > MaxLevel {
			return Violation("%s level %d outside [%d,%d]", t, l, MinLevel, MaxLevel)
		}
	}
	if want := limits.MaxEnergy(a.EnergyLimitLevel); a.MaxEnergy != want {
		return Violation("maxEnergy %d does not match energyLimitLevel %d (want %d)", a.MaxEnergy, a.EnergyLimitLevel, want)
	}
	if a.Energy < 0 || a.Energy > a.MaxEnergy {
		return Violation("energy %d outside [0,%d]", a.Energy, a.MaxEnergy)
	}
	if a.Power < 0 || a.CheckInPoints < 0 || a.ReferralPoints < 0 || a.Stars < 0 {
		return Violation("negative balance")
	}
	if a.AutoTapBot.IsActive && a.AutoTapBot.LastClaimed.After(now) {
		return Violation("bot checkpoint %v is in the future", a.AutoTapBot.LastClaimed)
	}
	if a.CheckInStreak < 0 {
		return Violation("negative check-in streak")
	}

	thresholds := limits.ReferralThresholds()
	if len(a.ReferralRewards) != len(thresholds) {
		return Violation("referral rewards hold %d tiers, want %d", len(a.ReferralRewards), len(thresholds))
	}
	for i, r := range a.ReferralRewards {
		if r.ReferralsRequired != thresholds[i] {
			return Violation("referral tier %d requires %d, want %d", i, r.ReferralsRequired, thresholds[i])
		}
	}
	return nil
}

// SettleEnergy stores a recomputed energy value and its regen checkpoint.
func (a *Account) SettleEnergy(energy int64, checkpoint time.Time) error {
	if energy < 0 || energy > a.MaxEnergy {
		return Violation("settled energy %d outside [0,%d]", energy, a.MaxEnergy)
	}
	if checkpoint.Before(a.LastTapTime) {
		return Violation("energy checkpoint moved backwards")
	}
	a.Energy = energy
	a.LastTapTime = checkpoint
	return nil
}

// SpendEnergy consumes n energy units.
func (a *Account) SpendEnergy(n int64) error {
	if n < 0 || n > a.Energy {
		return Violation("spend %d energy with %d available", n, a.Energy)
	}
	a.Energy -= n
	return nil
}

// CreditPower adds earned power and records it in the statistics.
func (a *Account) CreditPower(n int64, taps int64) error {
	if n < 0 || taps < 0 {
		return Violation("negative power credit")
	}
	a.Power += n
	a.Statistics.TotalTaps += taps
	a.Statistics.TotalPowerGenerated += n
	return nil
}

// SpendPower deducts power for an upgrade.
func (a *Account) SpendPower(n int64) error {
	if n < 0 || n > a.Power {
		return Violation("spend %d power with %d available", n, a.Power)
	}
	a.Power -= n
	return nil
}

// SpendStars deducts premium currency.
func (a *Account) SpendStars(n int64) error {
	if n < 0 || n > a.Stars {
		return Violation("spend %d stars with %d available", n, a.Stars)
	}
	a.Stars -= n
	return nil
}

// CreditStars adds premium currency (purchases are validated outside the engine).
func (a *Account) CreditStars(n int64) error {
	if n < 0 {
		return Violation("negative star credit")
	}
	a.Stars += n
	return nil
}

// RecordCheckIn credits check-in points and moves the streak.
func (a *Account) RecordCheckIn(points int64, streak int, at time.Time) error {
	if points < 0 || streak < 1 {
		return Violation("check-in credit %d with streak %d", points, streak)
	}
	if a.LastCheckIn != nil && !at.After(*a.LastCheckIn) {
		return Violation("check-in time moved backwards")
	}
	a.CheckInPoints += points
	a.CheckInStreak = streak
	a.LastCheckIn = &at
	a.Statistics.TotalCheckIns++
	if streak > a.Statistics.LongestCheckInStreak {
		a.Statistics.LongestCheckInStreak = streak
	}
	return nil
}

// CreditReferralPoints adds referral earnings.
func (a *Account) CreditReferralPoints(n int64) error {
	if n < 0 {
		return Violation("negative referral credit")
	}
	a.ReferralPoints += n
	return nil
}

// RaiseLevel moves a track up by exactly one. maxEnergy is applied when the
// energy limit track changes.
func (a *Account) RaiseLevel(t Track, to int, maxEnergy int64) error {
	from := a.Level(t)
	if !t.Valid() || to != from+1 || to > MaxLevel {
		return Violation("level transition %s %d->%d", t, from, to)
	}
	switch t {
	case TrackSpeed:
		a.SpeedLevel = to
	case TrackMultiTap:
		a.MultiTapLevel = to
	case TrackEnergyLimit:
		if maxEnergy < a.MaxEnergy {
			return Violation("maxEnergy would shrink from %d to %d", a.MaxEnergy, maxEnergy)
		}
		a.EnergyLimitLevel = to
		a.MaxEnergy = maxEnergy
	}
	return nil
}

// StartBotSession opens a new mining window.
func (a *Account) StartBotSession(level string, start, validUntil time.Time) error {
	if !validUntil.After(start) {
		return Violation("bot validity ends before session start")
	}
	a.AutoTapBot = AutoTapBot{
		Level:        level,
		SessionStart: start,
		ValidUntil:   validUntil,
		LastClaimed:  start,
		IsActive:     true,
	}
	return nil
}

// AdvanceBotCheckpoint moves the claim checkpoint forward.
func (a *Account) AdvanceBotCheckpoint(to time.Time) error {
	if !a.AutoTapBot.IsActive {
		return Violation("advance checkpoint on inactive bot")
	}
	if to.Before(a.AutoTapBot.LastClaimed) {
		return Violation("bot checkpoint moved backwards")
	}
	a.AutoTapBot.LastClaimed = to
	return nil
}

// HasCompletedTask reports whether the task reward was already credited.
func (a *Account) HasCompletedTask(taskID int64) bool {
	return slices.Contains(a.TasksCompleted, taskID)
}

// MarkTaskCompleted records a completed task. Completing twice is a business
// error, not a violation: timers may race.
func (a *Account) MarkTaskCompleted(taskID int64) error {
	if a.HasCompletedTask(taskID) {
		return ErrTaskAlreadyCompleted.With("task_id", taskID)
	}
	a.TasksCompleted = append(a.TasksCompleted, taskID)
	return nil
}

// Clone returns a deep copy safe to mutate independently.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastCheckIn != nil {
		t := *a.LastCheckIn
		c.LastCheckIn = &t
	}
	c.DirectReferrals = slices.Clone(a.DirectReferrals)
	c.IndirectReferrals = slices.Clone(a.IndirectReferrals)
	c.ReferralRewards = slices.Clone(a.ReferralRewards)
	c.TasksCompleted = slices.Clone(a.TasksCompleted)
	return &c
}
