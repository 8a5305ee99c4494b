// Package entitlement holds the pure accrual functions of the game: energy
// regeneration, tapping, idle bot earnings, check-in streaks, referral tiers
// and upgrade costs. Every function is deterministic in (account, now, rules)
// and performs no I/O.
package entitlement

import (
	"errors"
	"fmt"
	"slices"

	"zentari/internal/domain"

	"github.com/BurntSushi/toml"
)

// DefaultVersion identifies the compiled-in rules table.
const DefaultVersion = "2024-10-v1"

type EnergyRules struct {
	Base              int64 `toml:"base" json:"base"`
	Step              int64 `toml:"step" json:"step"`
	TapCost           int64 `toml:"tap_cost" json:"tap_cost"`
	PowerPerTap       int64 `toml:"power_per_tap" json:"power_per_tap"`
	RegenBaseMs       int64 `toml:"regen_base_ms" json:"regen_base_ms"`
	MaxTapsPerRequest int   `toml:"max_taps_per_request" json:"max_taps_per_request"`
}

// BotTier configures one auto-tap bot subscription level.
type BotTier struct {
	ID            string `toml:"id" json:"id"`
	DurationHours int    `toml:"duration_hours" json:"duration_hours"`
	ValidityDays  int    `toml:"validity_days" json:"validity_days"`
	StarCost      int64  `toml:"star_cost" json:"star_cost"`
}

func (t BotTier) Paid() bool { return t.StarCost > 0 }

type CheckInRules struct {
	CycleDays      int   `toml:"cycle_days" json:"cycle_days"`
	BaseReward     int64 `toml:"base_reward" json:"base_reward"`
	StandardReward int64 `toml:"standard_reward" json:"standard_reward"`
	WeeklyBase     int64 `toml:"weekly_base" json:"weekly_base"`
	WeeklyStep     int64 `toml:"weekly_step" json:"weekly_step"`
	WeeklyCap      int64 `toml:"weekly_cap" json:"weekly_cap"`
}

// TierDef is one referral-count threshold and its one-time reward.
type TierDef struct {
	Required int   `toml:"required" json:"required"`
	Reward   int64 `toml:"reward" json:"reward"`
}

type ReferralRules struct {
	DirectReward   int64     `toml:"direct_reward" json:"direct_reward"`
	IndirectReward int64     `toml:"indirect_reward" json:"indirect_reward"`
	Tiers          []TierDef `toml:"tiers" json:"tiers"`
}

// UpgradeStep prices the transition to ToLevel. A step is paid either in
// power (PointCost) or in stars (StarCost, with a PowerReward on top).
type UpgradeStep struct {
	ToLevel     int   `toml:"to_level" json:"to_level"`
	PointCost   int64 `toml:"point_cost" json:"point_cost,omitempty"`
	StarCost    int64 `toml:"star_cost" json:"star_cost,omitempty"`
	PowerReward int64 `toml:"power_reward" json:"power_reward,omitempty"`
}

func (s UpgradeStep) UsesStars() bool { return s.StarCost > 0 }

// Rules is the immutable, versioned configuration table injected into every
// calculation. Treat a *Rules as read-only once it has been validated.
type Rules struct {
	Version       string        `toml:"version" json:"version"`
	StartingStars int64         `toml:"starting_stars" json:"starting_stars"`
	Energy        EnergyRules   `toml:"energy" json:"energy"`
	BotTiers      []BotTier     `toml:"bot_tiers" json:"bot_tiers"`
	CheckIn       CheckInRules  `toml:"check_in" json:"check_in"`
	Referral      ReferralRules `toml:"referral" json:"referral"`
	Upgrades      []UpgradeStep `toml:"upgrades" json:"upgrades"`
}

// Defaults returns a fresh copy of the compiled-in rules table.
func Defaults() *Rules {
	return &Rules{
		Version: DefaultVersion,
		Energy: EnergyRules{
			Base:              500,
			Step:              500,
			TapCost:           1,
			PowerPerTap:       1,
			RegenBaseMs:       1000,
			MaxTapsPerRequest: 100,
		},
		BotTiers: []BotTier{
			{ID: "free", DurationHours: 2, ValidityDays: 1},
			{ID: "standard", DurationHours: 6, ValidityDays: 7, StarCost: 50},
			{ID: "premium", DurationHours: 12, ValidityDays: 30, StarCost: 150},
		},
		CheckIn: CheckInRules{
			CycleDays:      7,
			BaseReward:     100,
			StandardReward: 150,
			WeeklyBase:     500,
			WeeklyStep:     250,
			WeeklyCap:      1500,
		},
		Referral: ReferralRules{
			DirectReward:   500,
			IndirectReward: 100,
			Tiers: []TierDef{
				{Required: 5, Reward: 1000},
				{Required: 10, Reward: 2500},
				{Required: 25, Reward: 7500},
				{Required: 50, Reward: 20000},
				{Required: 100, Reward: 50000},
			},
		},
		Upgrades: []UpgradeStep{
			{ToLevel: 2, PointCost: 1000},
			{ToLevel: 3, PointCost: 5000},
			{ToLevel: 4, PointCost: 20000},
			{ToLevel: 5, PointCost: 50000},
			{ToLevel: 6, StarCost: 100, PowerReward: 100000},
			{ToLevel: 7, StarCost: 250, PowerReward: 250000},
			{ToLevel: 8, StarCost: 500, PowerReward: 600000},
		},
	}
}

// Load reads a TOML override on top of the defaults. Tables present in the
// file replace the defaults; arrays are replaced wholesale.
func Load(path string) (*Rules, error) {
	r := Defaults()
	if path == "" {
		return r, nil
	}
	md, err := toml.DecodeFile(path, &Rules{})
	if err != nil {
		return nil, fmt.Errorf("decode rules %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode rules %s: unknown keys %v", path, undecoded)
	}
	// the decoder merges into existing slice elements, so clear arrays the
	// file redefines
	if md.IsDefined("bot_tiers") {
		r.BotTiers = nil
	}
	if md.IsDefined("upgrades") {
		r.Upgrades = nil
	}
	if md.IsDefined("referral", "tiers") {
		r.Referral.Tiers = nil
	}
	if _, err := toml.DecodeFile(path, r); err != nil {
		return nil, fmt.Errorf("decode rules %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validate rules %s: %w", path, err)
	}
	return r, nil
}

// Validate rejects tables the calculator cannot evaluate consistently.
func (r *Rules) Validate() error {
	var errs []error
	if r.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if r.StartingStars < 0 {
		errs = append(errs, errors.New("starting_stars must be >= 0"))
	}

	e := r.Energy
	if e.Base <= 0 || e.Step < 0 {
		errs = append(errs, errors.New("energy.base must be > 0 and energy.step >= 0"))
	}
	if e.TapCost <= 0 || e.PowerPerTap <= 0 {
		errs = append(errs, errors.New("energy.tap_cost and energy.power_per_tap must be > 0"))
	}
	if e.RegenBaseMs < domain.MaxLevel {
		errs = append(errs, fmt.Errorf("energy.regen_base_ms must be >= %d", domain.MaxLevel))
	}
	if e.MaxTapsPerRequest < 1 {
		errs = append(errs, errors.New("energy.max_taps_per_request must be >= 1"))
	}

	if len(r.BotTiers) == 0 {
		errs = append(errs, errors.New("at least one bot tier is required"))
	}
	seen := make(map[string]bool)
	for _, t := range r.BotTiers {
		if t.ID == "" || seen[t.ID] {
			errs = append(errs, fmt.Errorf("bot tier id %q empty or duplicated", t.ID))
		}
		seen[t.ID] = true
		if t.DurationHours <= 0 || t.ValidityDays <= 0 || t.StarCost < 0 {
			errs = append(errs, fmt.Errorf("bot tier %q needs positive duration and validity", t.ID))
		}
	}

	c := r.CheckIn
	if c.CycleDays < 1 {
		errs = append(errs, errors.New("check_in.cycle_days must be >= 1"))
	}
	if c.BaseReward < 0 || c.StandardReward < 0 || c.WeeklyBase < 0 || c.WeeklyStep < 0 || c.WeeklyCap < c.WeeklyBase {
		errs = append(errs, errors.New("check_in rewards must be >= 0 and weekly_cap >= weekly_base"))
	}

	if r.Referral.DirectReward < 0 || r.Referral.IndirectReward < 0 {
		errs = append(errs, errors.New("referral rewards must be >= 0"))
	}
	for i, t := range r.Referral.Tiers {
		if t.Required < 1 || t.Reward < 0 {
			errs = append(errs, fmt.Errorf("referral tier %d must require >= 1 referral", i))
		}
		if i > 0 && t.Required <= r.Referral.Tiers[i-1].Required {
			errs = append(errs, errors.New("referral tiers must be strictly ascending"))
		}
	}

	if len(r.Upgrades) != domain.MaxLevel-domain.MinLevel {
		errs = append(errs, fmt.Errorf("upgrades must define %d steps", domain.MaxLevel-domain.MinLevel))
	}
	for i, s := range r.Upgrades {
		if s.ToLevel != domain.MinLevel+1+i {
			errs = append(errs, fmt.Errorf("upgrade step %d must target level %d", i, domain.MinLevel+1+i))
		}
		if (s.PointCost > 0) == (s.StarCost > 0) {
			errs = append(errs, fmt.Errorf("upgrade to level %d must cost either points or stars", s.ToLevel))
		}
		if s.PowerReward < 0 || (s.PowerReward > 0 && !s.UsesStars()) {
			errs = append(errs, fmt.Errorf("upgrade to level %d: power_reward only applies to star steps", s.ToLevel))
		}
	}
	return errors.Join(errs...)
}

// MaxEnergy is baseEnergy + step*(level-1).
func (r *Rules) MaxEnergy(energyLimitLevel int) int64 {
	return r.Energy.Base + r.Energy.Step*int64(energyLimitLevel-1)
}

// ReferralThresholds lists tier thresholds in ascending order.
func (r *Rules) ReferralThresholds() []int {
	out := make([]int, len(r.Referral.Tiers))
	for i, t := range r.Referral.Tiers {
		out[i] = t.Required
	}
	return out
}

// BotTier looks up a bot tier by id.
func (r *Rules) BotTier(id string) (BotTier, bool) {
	i := slices.IndexFunc(r.BotTiers, func(t BotTier) bool { return t.ID == id })
	if i < 0 {
		return BotTier{}, false
	}
	return r.BotTiers[i], true
}

// BotTierIDs lists the configured tier ids.
func (r *Rules) BotTierIDs() []string {
	ids := make([]string, len(r.BotTiers))
	for i, t := range r.BotTiers {
		ids[i] = t.ID
	}
	return ids
}

// AccountDefaults are the starting values for a new account.
func (r *Rules) AccountDefaults() domain.AccountDefaults {
	tiers := make([]domain.ReferralReward, len(r.Referral.Tiers))
	for i, t := range r.Referral.Tiers {
		tiers[i] = domain.ReferralReward{ReferralsRequired: t.Required, RewardAmount: t.Reward}
	}
	return domain.AccountDefaults{
		MaxEnergy: r.MaxEnergy(domain.MinLevel),
		Stars:     r.StartingStars,
		Tiers:     tiers,
	}
}
