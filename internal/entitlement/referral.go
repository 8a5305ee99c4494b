package entitlement

import (
	"zentari/internal/domain"
)

// ValidateInviter checks the referral edge of a registration before any
// account is loaded.
func ValidateInviter(username, inviter string) error {
	if inviter == "" {
		return nil
	}
	if domain.UsernameKey(inviter) == domain.UsernameKey(username) {
		return domain.ErrSelfReferral.With("username", username)
	}
	return nil
}

// ClaimableTier returns the lowest tier the account qualifies for and has not
// claimed yet.
func ClaimableTier(a *domain.Account) (domain.ReferralReward, bool) {
	n := a.DirectCount()
	for _, t := range a.ReferralRewards {
		if !t.Claimed && n >= t.ReferralsRequired {
			return t, true
		}
	}
	return domain.ReferralReward{}, false
}

// NextLockedTier returns the lowest unclaimed tier the account does not
// qualify for yet.
func NextLockedTier(a *domain.Account) (domain.ReferralReward, bool) {
	n := a.DirectCount()
	for _, t := range a.ReferralRewards {
		if !t.Claimed && n < t.ReferralsRequired {
			return t, true
		}
	}
	return domain.ReferralReward{}, false
}

// ReferralClaimPlan names the tier a claim resolves to.
type ReferralClaimPlan struct {
	Tier      domain.ReferralReward `json:"tier"`
	Referrals int                   `json:"referrals"`
}

// ClaimReferral resolves the lowest claimable tier.
func ClaimReferral(a *domain.Account) (ReferralClaimPlan, error) {
	tier, ok := ClaimableTier(a)
	if !ok {
		err := domain.ErrNoClaimableReward.With("referrals", a.DirectCount())
		if next, ok := NextLockedTier(a); ok {
			err = err.With("next_required", next.ReferralsRequired, "missing", next.ReferralsRequired-a.DirectCount())
		}
		return ReferralClaimPlan{}, err
	}
	return ReferralClaimPlan{Tier: tier, Referrals: a.DirectCount()}, nil
}

// TierView is the per-account state of one referral tier.
type TierView struct {
	Required  int   `json:"required"`
	Reward    int64 `json:"reward"`
	Claimed   bool  `json:"claimed"`
	Claimable bool  `json:"claimable"`
}

// ReferralTiers lists tier states in ascending order.
func ReferralTiers(a *domain.Account) []TierView {
	n := a.DirectCount()
	out := make([]TierView, len(a.ReferralRewards))
	for i, t := range a.ReferralRewards {
		out[i] = TierView{
			Required:  t.ReferralsRequired,
			Reward:    t.RewardAmount,
			Claimed:   t.Claimed,
			Claimable: !t.Claimed && n >= t.ReferralsRequired,
		}
	}
	return out
}
