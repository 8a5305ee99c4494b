package entitlement

import (
	"time"

	"zentari/internal/domain"
)

// utcDay truncates t to midnight of its UTC calendar day.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckInReward is the reward for streak day d (1-based).
func (r *Rules) CheckInReward(day int) int64 {
	c := r.CheckIn
	switch {
	case day <= 1:
		return c.BaseReward
	case day%c.CycleDays != 0:
		return c.StandardReward
	}
	week := int64(day / c.CycleDays)
	reward := c.WeeklyBase + c.WeeklyStep*(week-1)
	if reward > c.WeeklyCap {
		return c.WeeklyCap
	}
	return reward
}

// NextCheckInAt is the start of the UTC day after the last check-in, or the
// zero time when the account never checked in.
func NextCheckInAt(a *domain.Account) time.Time {
	if a.LastCheckIn == nil {
		return time.Time{}
	}
	return utcDay(*a.LastCheckIn).AddDate(0, 0, 1)
}

// CheckInAvailable reports whether a check-in is allowed at now.
func CheckInAvailable(a *domain.Account, now time.Time) bool {
	return a.LastCheckIn == nil || !now.Before(NextCheckInAt(a))
}

// EffectiveStreak is the stored streak while it is still alive (checked in
// today or yesterday) and zero once a day has been missed.
func EffectiveStreak(a *domain.Account, now time.Time) int {
	if a.LastCheckIn == nil {
		return 0
	}
	if utcDay(now).Sub(utcDay(*a.LastCheckIn)) > 24*time.Hour {
		return 0
	}
	return a.CheckInStreak
}

// CheckInOutcome is the computed result of a check-in.
type CheckInOutcome struct {
	Streak          int       `json:"streak"`
	Reward          int64     `json:"reward"`
	StreakReset     bool      `json:"streak_reset"`
	NextAvailableAt time.Time `json:"next_available_at"`
}

// ComputeCheckIn computes a daily check-in at now.
func (r *Rules) ComputeCheckIn(a *domain.Account, now time.Time) (CheckInOutcome, error) {
	if !CheckInAvailable(a, now) {
		next := NextCheckInAt(a)
		return CheckInOutcome{}, domain.ErrAlreadyCheckedInToday.With(
			"next_available_at", next,
			"seconds_remaining", ceilSeconds(next.Sub(now)),
		)
	}

	streak := 1
	reset := a.LastCheckIn != nil
	if a.LastCheckIn != nil && utcDay(*a.LastCheckIn).AddDate(0, 0, 1).Equal(utcDay(now)) {
		streak = a.CheckInStreak + 1
		reset = false
	}
	return CheckInOutcome{
		Streak:          streak,
		Reward:          r.CheckInReward(streak),
		StreakReset:     reset,
		NextAvailableAt: utcDay(now).AddDate(0, 0, 1),
	}, nil
}

// CheckInView is the read-only check-in status.
type CheckInView struct {
	Available       bool       `json:"available"`
	Streak          int        `json:"streak"`
	NextReward      int64      `json:"next_reward"`
	LastCheckIn     *time.Time `json:"last_check_in,omitempty"`
	NextAvailableAt *time.Time `json:"next_available_at,omitempty"`
}

// CheckInStatus reports availability, effective streak and the reward the
// next check-in would pay.
func (r *Rules) CheckInStatus(a *domain.Account, now time.Time) CheckInView {
	v := CheckInView{
		Available:   CheckInAvailable(a, now),
		Streak:      EffectiveStreak(a, now),
		LastCheckIn: a.LastCheckIn,
	}
	if v.Available {
		if out, err := r.ComputeCheckIn(a, now); err == nil {
			v.NextReward = out.Reward
		}
	} else {
		next := NextCheckInAt(a)
		v.NextAvailableAt = &next
		v.NextReward = r.CheckInReward(a.CheckInStreak + 1)
	}
	return v
}
