package entitlement

import (
	"time"

	"zentari/internal/domain"
)

// NextUpgrade returns the step that raises a track from its current level.
func (r *Rules) NextUpgrade(a *domain.Account, t domain.Track) (UpgradeStep, bool) {
	to := a.Level(t) + 1
	for _, s := range r.Upgrades {
		if s.ToLevel == to {
			return s, true
		}
	}
	return UpgradeStep{}, false
}

// UpgradePlan is the computed result of an upgrade request.
type UpgradePlan struct {
	Track     domain.Track `json:"track"`
	From      int          `json:"from"`
	To        int          `json:"to"`
	Step      UpgradeStep  `json:"step"`
	MaxEnergy int64        `json:"max_energy"`
	// Settled is the energy state at the pre-upgrade speed and pool size.
	Settled EnergyState `json:"-"`
	// Bot is the bot accrual owed at the pre-upgrade levels. It is credited
	// before the level changes so a new level never applies retroactively.
	Bot BotAccrual `json:"-"`
}

// Upgrade computes raising one track by exactly one level. Levels 2..5 are
// paid from power, 6..8 from stars with a power reward on top.
func (r *Rules) Upgrade(a *domain.Account, t domain.Track, useStars bool, now time.Time) (UpgradePlan, error) {
	if !t.Valid() {
		return UpgradePlan{}, domain.ErrValidation.With("field", "track", "value", string(t), "allowed", domain.Tracks)
	}
	from := a.Level(t)
	if from >= domain.MaxLevel {
		return UpgradePlan{}, domain.ErrMaxLevelReached.With("track", t, "level", from)
	}
	step, ok := r.NextUpgrade(a, t)
	if !ok {
		return UpgradePlan{}, domain.ErrMaxLevelReached.With("track", t, "level", from)
	}
	if step.UsesStars() != useStars {
		return UpgradePlan{}, domain.ErrWrongPaymentMode.With(
			"track", t,
			"to_level", step.ToLevel,
			"requires_stars", step.UsesStars(),
		)
	}
	if step.UsesStars() {
		if a.Stars < step.StarCost {
			return UpgradePlan{}, domain.ErrInsufficientFunds.With(
				"currency", domain.CurrencyStars,
				"required", step.StarCost,
				"current", a.Stars,
			)
		}
	} else if a.Power < step.PointCost {
		return UpgradePlan{}, domain.ErrInsufficientFunds.With(
			"currency", domain.CurrencyPower,
			"required", step.PointCost,
			"current", a.Power,
		)
	}

	plan := UpgradePlan{
		Track:     t,
		From:      from,
		To:        step.ToLevel,
		Step:      step,
		MaxEnergy: a.MaxEnergy,
		Settled:   r.EffectiveEnergy(a, now),
		Bot:       r.PendingBot(a, now),
	}
	if t == domain.TrackEnergyLimit {
		plan.MaxEnergy = r.MaxEnergy(step.ToLevel)
	}
	return plan, nil
}

// UpgradeView is the price of the next level of one track.
type UpgradeView struct {
	Track       domain.Track `json:"track"`
	Level       int          `json:"level"`
	MaxLevel    bool         `json:"max_level"`
	NextLevel   int          `json:"next_level,omitempty"`
	PointCost   int64        `json:"point_cost,omitempty"`
	StarCost    int64        `json:"star_cost,omitempty"`
	PowerReward int64        `json:"power_reward,omitempty"`
	Affordable  bool         `json:"affordable"`
}

// UpgradeCosts lists the next step of every track.
func (r *Rules) UpgradeCosts(a *domain.Account) []UpgradeView {
	out := make([]UpgradeView, 0, len(domain.Tracks))
	for _, t := range domain.Tracks {
		v := UpgradeView{Track: t, Level: a.Level(t)}
		step, ok := r.NextUpgrade(a, t)
		if !ok {
			v.MaxLevel = true
			out = append(out, v)
			continue
		}
		v.NextLevel = step.ToLevel
		v.PointCost = step.PointCost
		v.StarCost = step.StarCost
		v.PowerReward = step.PowerReward
		if step.UsesStars() {
			v.Affordable = a.Stars >= step.StarCost
		} else {
			v.Affordable = a.Power >= step.PointCost
		}
		out = append(out, v)
	}
	return out
}
