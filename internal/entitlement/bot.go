package entitlement

import (
	"time"

	"zentari/internal/domain"
)

// BotWindow is the mining window of the current bot session.
type BotWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w BotWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// Contains reports whether t lies inside [Start, End).
func (w BotWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window returns the mining window of the account's bot session. A session
// mines for the tier duration, never past the subscription validity. Tiers
// removed from the rules table mine until validity ends.
func (r *Rules) Window(bot domain.AutoTapBot) BotWindow {
	end := bot.ValidUntil
	if tier, ok := r.BotTier(bot.Level); ok {
		if e := bot.SessionStart.Add(time.Duration(tier.DurationHours) * time.Hour); e.Before(end) {
			end = e
		}
	}
	if end.Before(bot.SessionStart) {
		end = bot.SessionStart
	}
	return BotWindow{Start: bot.SessionStart, End: end}
}

// BotAccrual is the power the bot has mined since its last claim.
type BotAccrual struct {
	Window     BotWindow     `json:"window"`
	Elapsed    time.Duration `json:"-"`
	Taps       int64         `json:"taps"`
	TapPower   int64         `json:"tap_power"`
	Power      int64         `json:"power"`
	Capped     bool          `json:"capped"`
	Mining     bool          `json:"mining"`
	Checkpoint time.Time     `json:"-"`
}

// PendingBot computes accrual over
// clamp(min(now, end) - max(lastClaimed, start), 0, end - start), converted
// to taps at speedLevel taps per second and capped at the energy pool size.
func (r *Rules) PendingBot(a *domain.Account, now time.Time) BotAccrual {
	bot := a.AutoTapBot
	if !bot.IsActive {
		return BotAccrual{Checkpoint: bot.LastClaimed}
	}

	w := r.Window(bot)
	from := maxTime(bot.LastClaimed, w.Start)
	to := minTime(now, w.End)

	elapsed := to.Sub(from)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > w.Duration() {
		elapsed = w.Duration()
	}

	taps := elapsed.Milliseconds() * int64(a.SpeedLevel) / 1000
	capped := false
	if taps > a.MaxEnergy {
		taps = a.MaxEnergy
		capped = true
	}

	// Uncapped claims inside the window consume only the time behind whole
	// taps so the fractional remainder carries into the next claim.
	checkpoint := to
	if !capped && now.Before(w.End) && a.SpeedLevel > 0 {
		ms := (taps*1000 + int64(a.SpeedLevel) - 1) / int64(a.SpeedLevel)
		checkpoint = from.Add(time.Duration(ms) * time.Millisecond)
	}

	tapPower := r.TapPower(a.MultiTapLevel)
	return BotAccrual{
		Window:     w,
		Elapsed:    elapsed,
		Taps:       taps,
		TapPower:   tapPower,
		Power:      taps * tapPower,
		Capped:     capped,
		Mining:     w.Contains(now),
		Checkpoint: maxTime(bot.LastClaimed, checkpoint),
	}
}

// ClaimBot computes a claim at now. While the bot is mining, a claim before a
// whole tap has accrued fails with NothingToClaim; once the window has closed
// a drained claim succeeds with zero power.
func (r *Rules) ClaimBot(a *domain.Account, now time.Time) (BotAccrual, error) {
	if !a.AutoTapBot.IsActive {
		return BotAccrual{}, domain.ErrBotNotActive
	}
	acc := r.PendingBot(a, now)
	if acc.Taps == 0 && acc.Mining {
		return BotAccrual{}, domain.ErrNothingToClaim.With(
			"mining_until", acc.Window.End,
			"seconds_remaining", ceilSeconds(acc.Window.End.Sub(now)),
		)
	}
	return acc, nil
}

// BotActivation is the computed result of an activation request.
type BotActivation struct {
	Tier         BotTier    `json:"tier"`
	StarsCharged int64      `json:"stars_charged"`
	Renewal      bool       `json:"renewal"`
	SessionStart time.Time  `json:"session_start"`
	ValidUntil   time.Time  `json:"valid_until"`
	Window       BotWindow  `json:"window"`
	Settled      BotAccrual `json:"settled"`
}

// ActivateBot opens a new mining session. Paid tiers charge stars unless the
// account holds a still-valid paid subscription costing at least as much. A
// valid subscription covers every cheaper tier too: the session then runs at
// the subscribed tier and keeps its validity. Earnings left in the previous
// window are settled.
func (r *Rules) ActivateBot(a *domain.Account, tierID string, paymentValidated bool, now time.Time) (BotActivation, error) {
	tier, ok := r.BotTier(tierID)
	if !ok {
		return BotActivation{}, domain.ErrInvalidTier.With("tier", tierID, "available", r.BotTierIDs())
	}

	bot := a.AutoTapBot
	if bot.IsActive {
		if w := r.Window(bot); now.Before(w.End) {
			return BotActivation{}, domain.ErrBotAlreadyMining.With(
				"level", bot.Level,
				"mining_until", w.End,
				"seconds_remaining", ceilSeconds(w.End.Sub(now)),
			)
		}
	}

	out := BotActivation{Tier: tier, SessionStart: now, Settled: r.PendingBot(a, now)}
	current, known := r.BotTier(bot.Level)
	subscribed := known && current.Paid() && bot.IsActive && now.Before(bot.ValidUntil)

	switch {
	case subscribed && tier.StarCost <= current.StarCost:
		out.Tier = current
		out.Renewal = true
		out.ValidUntil = bot.ValidUntil
	case tier.Paid():
		if !paymentValidated {
			return BotActivation{}, domain.ErrPaymentNotValidated.With("tier", tier.ID, "star_cost", tier.StarCost)
		}
		if a.Stars < tier.StarCost {
			return BotActivation{}, domain.ErrInsufficientStars.With("required", tier.StarCost, "current", a.Stars)
		}
		out.StarsCharged = tier.StarCost
		out.ValidUntil = now.AddDate(0, 0, tier.ValidityDays)
	default:
		out.ValidUntil = now.AddDate(0, 0, tier.ValidityDays)
	}

	out.Window = r.Window(domain.AutoTapBot{Level: out.Tier.ID, SessionStart: now, ValidUntil: out.ValidUntil})
	return out, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
