package service

import (
	"context"
	"time"

	"zentari/internal/domain"
	"zentari/internal/entitlement"
)

// TapResult reports a committed tap batch.
type TapResult struct {
	Taps        int64 `json:"taps"`
	PowerGained int64 `json:"power_gained"`
	Energy      int64 `json:"energy"`
	MaxEnergy   int64 `json:"max_energy"`
	Power       int64 `json:"power"`
	TotalPoints int64 `json:"total_points"`
}

// Tap spends count energy units for count × tapPower power. The batch
// commits as a whole or not at all.
func (e *Engine) Tap(ctx context.Context, userID string, count int) (*TapResult, error) {
	var res TapResult
	err := e.mutate(ctx, "tap", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		out, err := e.rules.Tap(a, count, now)
		if err != nil {
			return nil, err
		}
		if err := a.SettleEnergy(out.Settled.Energy, out.Settled.Checkpoint); err != nil {
			return nil, err
		}
		if err := a.SpendEnergy(out.EnergySpent); err != nil {
			return nil, err
		}
		if err := a.CreditPower(out.PowerGained, out.Taps); err != nil {
			return nil, err
		}

		res = TapResult{
			Taps:        out.Taps,
			PowerGained: out.PowerGained,
			Energy:      a.Energy,
			MaxEnergy:   a.MaxEnergy,
			Power:       a.Power,
			TotalPoints: a.TotalPoints(),
		}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry(a.UserID, domain.LedgerTapBatch, domain.CurrencyPower, out.PowerGained,
				map[string]any{"taps": out.Taps, "tap_power": out.TapPower}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	credit("tap", res.PowerGained)
	return &res, nil
}

// UpgradeResult reports a committed level increase.
type UpgradeResult struct {
	Track       domain.Track    `json:"track"`
	Level       int             `json:"level"`
	Currency    domain.Currency `json:"currency"`
	Paid        int64           `json:"paid"`
	PowerReward int64           `json:"power_reward"`
	// SettledBotPower is bot accrual credited at the old levels.
	SettledBotPower int64                    `json:"settled_bot_power"`
	Power           int64                    `json:"power"`
	Stars           int64                    `json:"stars"`
	MaxEnergy       int64                    `json:"max_energy"`
	Next            *entitlement.UpgradeView `json:"next,omitempty"`
}

// Upgrade raises one track by one level. Energy and bot accrual are settled
// at the old levels before the level changes.
func (e *Engine) Upgrade(ctx context.Context, userID string, track domain.Track, useStars bool) (*UpgradeResult, error) {
	var res UpgradeResult
	err := e.mutate(ctx, "upgrade", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		plan, err := e.rules.Upgrade(a, track, useStars, now)
		if err != nil {
			return nil, err
		}
		if err := a.SettleEnergy(plan.Settled.Energy, plan.Settled.Checkpoint); err != nil {
			return nil, err
		}

		var entries []domain.LedgerEntry
		if a.AutoTapBot.IsActive {
			if err := a.CreditPower(plan.Bot.Power, plan.Bot.Taps); err != nil {
				return nil, err
			}
			if err := a.AdvanceBotCheckpoint(plan.Bot.Checkpoint); err != nil {
				return nil, err
			}
			if plan.Bot.Power > 0 {
				entries = append(entries, domain.NewLedgerEntry(a.UserID, domain.LedgerBotClaim, domain.CurrencyPower, plan.Bot.Power,
					map[string]any{"taps": plan.Bot.Taps, "tier": a.AutoTapBot.Level, "settled": true}, now))
			}
		}

		res = UpgradeResult{Track: track, Currency: domain.CurrencyPower, Paid: plan.Step.PointCost}
		if plan.Step.UsesStars() {
			res.Currency, res.Paid = domain.CurrencyStars, plan.Step.StarCost
			err = a.SpendStars(plan.Step.StarCost)
		} else {
			err = a.SpendPower(plan.Step.PointCost)
		}
		if err != nil {
			return nil, err
		}
		if err := a.RaiseLevel(track, plan.To, plan.MaxEnergy); err != nil {
			return nil, err
		}
		if err := a.CreditPower(plan.Step.PowerReward, 0); err != nil {
			return nil, err
		}

		res.Level = plan.To
		res.PowerReward = plan.Step.PowerReward
		res.SettledBotPower = plan.Bot.Power
		res.Power, res.Stars, res.MaxEnergy = a.Power, a.Stars, a.MaxEnergy
		for _, v := range e.rules.UpgradeCosts(a) {
			if v.Track == track && !v.MaxLevel {
				res.Next = &v
			}
		}

		meta := map[string]any{"track": string(track), "from": plan.From, "to": plan.To}
		entries = append(entries, domain.NewLedgerEntry(a.UserID, domain.LedgerUpgrade, res.Currency, -res.Paid, meta, now))
		if plan.Step.PowerReward > 0 {
			entries = append(entries, domain.NewLedgerEntry(a.UserID, domain.LedgerUpgradeReward, domain.CurrencyPower,
				plan.Step.PowerReward, meta, now))
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	credit("bot", res.SettledBotPower)
	credit("upgrade_reward", res.PowerReward)
	if res.Currency == domain.CurrencyStars {
		e.audit.LogStarSpend(ctx, userID, domain.AuditActionStarUpgrade, res.Paid,
			map[string]any{"track": string(track), "level": res.Level})
	}
	return &res, nil
}

// BotActivationResult reports a started bot session.
type BotActivationResult struct {
	Tier          string    `json:"tier"`
	StarsCharged  int64     `json:"stars_charged"`
	Renewal       bool      `json:"renewal"`
	SessionStart  time.Time `json:"session_start"`
	MiningUntil   time.Time `json:"mining_until"`
	ValidUntil    time.Time `json:"valid_until"`
	SettledPower  int64     `json:"settled_power"`
	Power         int64     `json:"power"`
	StarsBalance  int64     `json:"stars"`
	DurationHours int       `json:"duration_hours"`
}

// ActivateBot starts a mining session, settling whatever the previous window
// still owed.
func (e *Engine) ActivateBot(ctx context.Context, userID, tier string, paymentValidated bool) (*BotActivationResult, error) {
	var res BotActivationResult
	err := e.mutate(ctx, "activate_bot", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		plan, err := e.rules.ActivateBot(a, tier, paymentValidated, now)
		if err != nil {
			return nil, err
		}

		var entries []domain.LedgerEntry
		if s := plan.Settled; s.Power > 0 {
			if err := a.CreditPower(s.Power, s.Taps); err != nil {
				return nil, err
			}
			entries = append(entries, domain.NewLedgerEntry(a.UserID, domain.LedgerBotClaim, domain.CurrencyPower, s.Power,
				map[string]any{"taps": s.Taps, "tier": a.AutoTapBot.Level, "settled": true}, now))
		}
		if plan.StarsCharged > 0 {
			if err := a.SpendStars(plan.StarsCharged); err != nil {
				return nil, err
			}
			entries = append(entries, domain.NewLedgerEntry(a.UserID, domain.LedgerBotActivation, domain.CurrencyStars, -plan.StarsCharged,
				map[string]any{"tier": plan.Tier.ID}, now))
		}
		if err := a.StartBotSession(plan.Tier.ID, plan.SessionStart, plan.ValidUntil); err != nil {
			return nil, err
		}

		res = BotActivationResult{
			Tier:          plan.Tier.ID,
			StarsCharged:  plan.StarsCharged,
			Renewal:       plan.Renewal,
			SessionStart:  plan.SessionStart,
			MiningUntil:   plan.Window.End,
			ValidUntil:    plan.ValidUntil,
			SettledPower:  plan.Settled.Power,
			Power:         a.Power,
			StarsBalance:  a.Stars,
			DurationHours: plan.Tier.DurationHours,
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	credit("bot", res.SettledPower)
	if res.StarsCharged > 0 {
		e.audit.LogStarSpend(ctx, userID, domain.AuditActionBotActivate, res.StarsCharged,
			map[string]any{"tier": res.Tier, "valid_until": res.ValidUntil})
	}
	return &res, nil
}

// BotClaim reports collected bot earnings.
type BotClaim struct {
	Taps        int64     `json:"taps"`
	Power       int64     `json:"power"`
	Capped      bool      `json:"capped"`
	Mining      bool      `json:"mining"`
	MiningUntil time.Time `json:"mining_until"`
	TotalPower  int64     `json:"total_power"`
}

// ClaimBotEarnings credits what the bot mined since the last claim and moves
// the checkpoint to min(now, window end).
func (e *Engine) ClaimBotEarnings(ctx context.Context, userID string) (*BotClaim, error) {
	var res BotClaim
	err := e.mutate(ctx, "claim_bot", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		acc, err := e.rules.ClaimBot(a, now)
		if err != nil {
			return nil, err
		}
		if err := a.CreditPower(acc.Power, acc.Taps); err != nil {
			return nil, err
		}
		if err := a.AdvanceBotCheckpoint(acc.Checkpoint); err != nil {
			return nil, err
		}

		res = BotClaim{
			Taps:        acc.Taps,
			Power:       acc.Power,
			Capped:      acc.Capped,
			Mining:      acc.Mining,
			MiningUntil: acc.Window.End,
			TotalPower:  a.Power,
		}
		if acc.Power == 0 {
			return nil, nil
		}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry(a.UserID, domain.LedgerBotClaim, domain.CurrencyPower, acc.Power,
				map[string]any{"taps": acc.Taps, "tier": a.AutoTapBot.Level}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	credit("bot", res.Power)
	return &res, nil
}

// CheckInResult reports a daily check-in.
type CheckInResult struct {
	Streak          int       `json:"streak"`
	Reward          int64     `json:"reward"`
	StreakReset     bool      `json:"streak_reset"`
	CheckInPoints   int64     `json:"check_in_points"`
	NextAvailableAt time.Time `json:"next_available_at"`
	NextReward      int64     `json:"next_reward"`
}

func (e *Engine) CheckIn(ctx context.Context, userID string) (*CheckInResult, error) {
	var res CheckInResult
	err := e.mutate(ctx, "check_in", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		out, err := e.rules.ComputeCheckIn(a, now)
		if err != nil {
			return nil, err
		}
		if err := a.RecordCheckIn(out.Reward, out.Streak, now); err != nil {
			return nil, err
		}
		res = CheckInResult{
			Streak:          out.Streak,
			Reward:          out.Reward,
			StreakReset:     out.StreakReset,
			CheckInPoints:   a.CheckInPoints,
			NextAvailableAt: out.NextAvailableAt,
			NextReward:      e.rules.CheckInReward(out.Streak + 1),
		}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry(a.UserID, domain.LedgerCheckIn, domain.CurrencyCheckInPoints, out.Reward,
				map[string]any{"streak": out.Streak}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// NextTier describes the tier after a claim: claimable now, or how many
// referrals are still missing.
type NextTier struct {
	Required  int   `json:"required"`
	Reward    int64 `json:"reward"`
	Claimable bool  `json:"claimable"`
	Missing   int   `json:"missing"`
}

// ReferralClaim reports a claimed referral tier.
type ReferralClaim struct {
	Required       int       `json:"required"`
	Reward         int64     `json:"reward"`
	Referrals      int       `json:"referrals"`
	ReferralPoints int64     `json:"referral_points"`
	Next           *NextTier `json:"next,omitempty"`
}

// ClaimReferralReward claims the lowest qualifying unclaimed tier.
func (e *Engine) ClaimReferralReward(ctx context.Context, userID string) (*ReferralClaim, error) {
	var res ReferralClaim
	err := e.mutate(ctx, "claim_referral", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		plan, err := entitlement.ClaimReferral(a)
		if err != nil {
			return nil, err
		}
		tier, err := a.ClaimTier(plan.Tier.ReferralsRequired)
		if err != nil {
			return nil, err
		}

		res = ReferralClaim{
			Required:       tier.ReferralsRequired,
			Reward:         tier.RewardAmount,
			Referrals:      a.DirectCount(),
			ReferralPoints: a.ReferralPoints,
		}
		if next, ok := entitlement.ClaimableTier(a); ok {
			res.Next = &NextTier{Required: next.ReferralsRequired, Reward: next.RewardAmount, Claimable: true}
		} else if next, ok := entitlement.NextLockedTier(a); ok {
			res.Next = &NextTier{
				Required: next.ReferralsRequired,
				Reward:   next.RewardAmount,
				Missing:  next.ReferralsRequired - a.DirectCount(),
			}
		}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry(a.UserID, domain.LedgerReferralTier, domain.CurrencyReferralPoints, tier.RewardAmount,
				map[string]any{"referrals_required": tier.ReferralsRequired}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	e.audit.LogTierClaim(ctx, userID, res.Required, res.Reward)
	return &res, nil
}

// TaskReward reports power credited for a completed task.
type TaskReward struct {
	TaskID     int64 `json:"task_id"`
	Power      int64 `json:"power"`
	TotalPower int64 `json:"total_power"`
}

// CompleteTask credits a flat power reward once per task.
func (e *Engine) CompleteTask(ctx context.Context, userID string, taskID, reward int64) (*TaskReward, error) {
	var res TaskReward
	err := e.mutate(ctx, "complete_task", userID, func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error) {
		if reward < 0 {
			return nil, domain.ErrValidation.With("field", "reward")
		}
		if err := a.MarkTaskCompleted(taskID); err != nil {
			return nil, err
		}
		if err := a.CreditPower(reward, 0); err != nil {
			return nil, err
		}
		res = TaskReward{TaskID: taskID, Power: reward, TotalPower: a.Power}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry(a.UserID, domain.LedgerTaskReward, domain.CurrencyPower, reward,
				map[string]any{"task_id": taskID}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	credit("task", res.Power)
	return &res, nil
}
