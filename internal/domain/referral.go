package domain

import "time"

// DirectReferral is a first-level invitee recorded on the inviter.
type DirectReferral struct {
	Username     string    `json:"username"`
	JoinedAt     time.Time `json:"joinedAt"`
	PointsEarned int64     `json:"pointsEarned"`
}

// IndirectReferral is a second-level invitee recorded on the inviter's upline.
type IndirectReferral struct {
	Username     string    `json:"username"`
	Via          string    `json:"via"`
	JoinedAt     time.Time `json:"joinedAt"`
	PointsEarned int64     `json:"pointsEarned"`
}

// ReferralReward is the per-account state of one referral tier.
type ReferralReward struct {
	ReferralsRequired int   `json:"referralsRequired"`
	RewardAmount      int64 `json:"rewardAmount"`
	Claimed           bool  `json:"claimed"`
}

// DirectCount is the number of first-level referrals.
func (a *Account) DirectCount() int {
	return len(a.DirectReferrals)
}

// AppendDirectReferral adds an invitee to the append-only direct list and
// credits the inviter.
func (a *Account) AppendDirectReferral(r DirectReferral) error {
	if r.Username == "" || r.Username == a.Username {
		return Violation("invalid direct referral %q", r.Username)
	}
	for _, existing := range a.DirectReferrals {
		if existing.Username == r.Username {
			return Violation("duplicate direct referral %q", r.Username)
		}
	}
	if err := a.CreditReferralPoints(r.PointsEarned); err != nil {
		return err
	}
	a.DirectReferrals = append(a.DirectReferrals, r)
	return nil
}

// AppendIndirectReferral adds a second-level invitee and credits the upline.
func (a *Account) AppendIndirectReferral(r IndirectReferral) error {
	if r.Username == "" || r.Via == "" || r.Username == a.Username {
		return Violation("invalid indirect referral %q via %q", r.Username, r.Via)
	}
	for _, existing := range a.IndirectReferrals {
		if existing.Username == r.Username {
			return Violation("duplicate indirect referral %q", r.Username)
		}
	}
	if err := a.CreditReferralPoints(r.PointsEarned); err != nil {
		return err
	}
	a.IndirectReferrals = append(a.IndirectReferrals, r)
	return nil
}

// ClaimTier flips the claimed flag of the tier with the given threshold and
// credits its reward.
func (a *Account) ClaimTier(required int) (ReferralReward, error) {
	for i := range a.ReferralRewards {
		r := &a.ReferralRewards[i]
		if r.ReferralsRequired != required {
			continue
		}
		if r.Claimed {
			return ReferralReward{}, Violation("tier %d claimed twice", required)
		}
		if a.DirectCount() < required {
			return ReferralReward{}, Violation("tier %d claimed with %d referrals", required, a.DirectCount())
		}
		r.Claimed = true
		if err := a.CreditReferralPoints(r.RewardAmount); err != nil {
			return ReferralReward{}, err
		}
		return *r, nil
	}
	return ReferralReward{}, Violation("unknown referral tier %d", required)
}
