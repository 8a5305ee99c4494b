package entitlement

import (
	"time"

	"zentari/internal/domain"
)

// RegenInterval is the time to regenerate one energy unit at a speed level.
// Higher speed levels regenerate faster.
func (r *Rules) RegenInterval(speedLevel int) time.Duration {
	if speedLevel < domain.MinLevel {
		speedLevel = domain.MinLevel
	}
	return time.Duration(r.Energy.RegenBaseMs/int64(speedLevel)) * time.Millisecond
}

// TapPower is the power granted by one tap at a multi-tap level.
func (r *Rules) TapPower(multiTapLevel int) int64 {
	return int64(multiTapLevel) * r.Energy.PowerPerTap
}

// EnergyState is energy recomputed at a point in time together with the regen
// checkpoint it should be stored against.
type EnergyState struct {
	Energy     int64     `json:"energy"`
	MaxEnergy  int64     `json:"max_energy"`
	Checkpoint time.Time `json:"checkpoint"`
}

// Full reports whether the pool is at capacity.
func (s EnergyState) Full() bool { return s.Energy >= s.MaxEnergy }

// EffectiveEnergy computes min(maxEnergy, energy + floor(elapsed/interval)).
// The checkpoint only advances by whole intervals, so partial progress towards
// the next unit survives a settle; a full pool pins the checkpoint at now.
func (r *Rules) EffectiveEnergy(a *domain.Account, now time.Time) EnergyState {
	st := EnergyState{Energy: a.Energy, MaxEnergy: a.MaxEnergy, Checkpoint: a.LastTapTime}
	if !now.After(a.LastTapTime) {
		return st
	}
	if a.Energy >= a.MaxEnergy {
		st.Energy = a.MaxEnergy
		st.Checkpoint = now
		return st
	}

	interval := r.RegenInterval(a.SpeedLevel)
	gained := int64(now.Sub(a.LastTapTime) / interval)
	if a.Energy+gained >= a.MaxEnergy {
		st.Energy = a.MaxEnergy
		st.Checkpoint = now
		return st
	}
	st.Energy = a.Energy + gained
	st.Checkpoint = a.LastTapTime.Add(time.Duration(gained) * interval)
	return st
}

// TimeToEnergy returns how long until the pool holds at least target units.
func (r *Rules) TimeToEnergy(a *domain.Account, now time.Time, target int64) time.Duration {
	st := r.EffectiveEnergy(a, now)
	if st.Energy >= target {
		return 0
	}
	if target > a.MaxEnergy {
		target = a.MaxEnergy
	}
	interval := r.RegenInterval(a.SpeedLevel)
	ready := st.Checkpoint.Add(time.Duration(target-st.Energy) * interval)
	if d := ready.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TapOutcome is the computed result of a tap request.
type TapOutcome struct {
	Taps         int64       `json:"taps"`
	TapPower     int64       `json:"tap_power"`
	PowerGained  int64       `json:"power_gained"`
	EnergySpent  int64       `json:"energy_spent"`
	EnergyBefore int64       `json:"energy_before"`
	Settled      EnergyState `json:"-"`
}

// Tap computes count taps at now. It fails as a whole with InsufficientEnergy
// when the regenerated pool cannot cover all of them.
func (r *Rules) Tap(a *domain.Account, count int, now time.Time) (TapOutcome, error) {
	if count < 1 || count > r.Energy.MaxTapsPerRequest {
		return TapOutcome{}, domain.ErrValidation.With("field", "count", "min", 1, "max", r.Energy.MaxTapsPerRequest)
	}

	st := r.EffectiveEnergy(a, now)
	need := int64(count) * r.Energy.TapCost
	if need > a.MaxEnergy {
		return TapOutcome{}, domain.ErrInsufficientEnergy.With(
			"current", st.Energy,
			"required", need,
			"max_energy", a.MaxEnergy,
		)
	}
	if st.Energy < need {
		return TapOutcome{}, domain.ErrInsufficientEnergy.With(
			"current", st.Energy,
			"required", need,
			"wait_seconds", ceilSeconds(r.TimeToEnergy(a, now, need)),
		)
	}

	power := r.TapPower(a.MultiTapLevel)
	return TapOutcome{
		Taps:         int64(count),
		TapPower:     power,
		PowerGained:  int64(count) * power,
		EnergySpent:  need,
		EnergyBefore: st.Energy,
		Settled:      st,
	}, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
