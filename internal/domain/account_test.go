package domain

import (
	"errors"
	"testing"
	"time"
)

type testLimits struct{}

func (testLimits) MaxEnergy(level int) int64 { return 500 * int64(level) }
func (testLimits) ReferralThresholds() []int { return []int{5, 10} }

var now = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestAccount() *Account {
	return NewAccount("42", "alice", "", AccountDefaults{
		MaxEnergy: 500,
		Tiers: []ReferralReward{
			{ReferralsRequired: 5, RewardAmount: 1000},
			{ReferralsRequired: 10, RewardAmount: 2500},
		},
	}, now)
}

func TestNewAccountIsValid(t *testing.T) {
	a := newTestAccount()
	if err := a.Validate(testLimits{}, now); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if a.Energy != a.MaxEnergy {
		t.Fatalf("energy = %d; want full pool", a.Energy)
	}
}

func TestValidateCatchesBrokenInvariants(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(a *Account)
	}{
		{"energy above max", func(a *Account) { a.Energy = 501 }},
		{"negative energy", func(a *Account) { a.Energy = -1 }},
		{"level zero", func(a *Account) { a.SpeedLevel = 0 }},
		{"level nine", func(a *Account) { a.MultiTapLevel = 9 }},
		{"max energy drift", func(a *Account) { a.EnergyLimitLevel = 2 }},
		{"negative power", func(a *Account) { a.Power = -5 }},
		{"negative stars", func(a *Account) { a.Stars = -1 }},
		{"future bot checkpoint", func(a *Account) {
			a.AutoTapBot = AutoTapBot{IsActive: true, LastClaimed: now.Add(time.Minute)}
		}},
		{"missing tier", func(a *Account) { a.ReferralRewards = a.ReferralRewards[:1] }},
		{"reordered tiers", func(a *Account) {
			a.ReferralRewards[0], a.ReferralRewards[1] = a.ReferralRewards[1], a.ReferralRewards[0]
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAccount()
			tc.mutate(a)
			err := a.Validate(testLimits{}, now)
			if !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("Validate = %v; want invariant violation", err)
			}
			if !IsKind(err, KindInvariant) {
				t.Fatalf("kind = %v", err)
			}
		})
	}
}

func TestMutationsRejectInsteadOfClamping(t *testing.T) {
	a := newTestAccount()
	if err := a.SpendEnergy(501); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("SpendEnergy over pool = %v", err)
	}
	if err := a.SpendPower(1); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("SpendPower with zero balance = %v", err)
	}
	if err := a.SettleEnergy(10, now.Add(-time.Second)); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("SettleEnergy backwards = %v", err)
	}
	if err := a.RaiseLevel(TrackSpeed, 3, 500); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("RaiseLevel skipping a level = %v", err)
	}
	if err := a.AdvanceBotCheckpoint(now); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("AdvanceBotCheckpoint on inactive bot = %v", err)
	}
	if a.Energy != 500 || a.Power != 0 || a.SpeedLevel != 1 {
		t.Fatal("failed mutation changed the account")
	}
}

func TestRaiseEnergyLimit(t *testing.T) {
	a := newTestAccount()
	if err := a.RaiseLevel(TrackEnergyLimit, 2, 1000); err != nil {
		t.Fatal(err)
	}
	if a.MaxEnergy != 1000 || a.Energy != 500 {
		t.Fatalf("max/energy = %d/%d", a.MaxEnergy, a.Energy)
	}
	if err := a.Validate(testLimits{}, now); err != nil {
		t.Fatal(err)
	}
}

func TestReferralListsAreAppendOnlySets(t *testing.T) {
	a := newTestAccount()
	r := DirectReferral{Username: "bob", JoinedAt: now, PointsEarned: 500}
	if err := a.AppendDirectReferral(r); err != nil {
		t.Fatal(err)
	}
	if err := a.AppendDirectReferral(r); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("duplicate direct referral = %v", err)
	}
	if err := a.AppendDirectReferral(DirectReferral{Username: "alice"}); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("self referral = %v", err)
	}
	if err := a.AppendIndirectReferral(IndirectReferral{Username: "carol", Via: "bob", PointsEarned: 100}); err != nil {
		t.Fatal(err)
	}
	if a.ReferralPoints != 600 || a.DirectCount() != 1 || len(a.IndirectReferrals) != 1 {
		t.Fatalf("points/direct/indirect = %d/%d/%d", a.ReferralPoints, a.DirectCount(), len(a.IndirectReferrals))
	}
}

func TestClaimTierRequiresReferrals(t *testing.T) {
	a := newTestAccount()
	if _, err := a.ClaimTier(5); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("unqualified claim = %v", err)
	}
	if _, err := a.ClaimTier(7); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("unknown tier = %v", err)
	}
}

func TestMarkTaskCompletedOnce(t *testing.T) {
	a := newTestAccount()
	if err := a.MarkTaskCompleted(3); err != nil {
		t.Fatal(err)
	}
	err := a.MarkTaskCompleted(3)
	if !errors.Is(err, ErrTaskAlreadyCompleted) {
		t.Fatalf("second completion = %v", err)
	}
	if !a.HasCompletedTask(3) || len(a.TasksCompleted) != 1 {
		t.Fatalf("tasks = %v", a.TasksCompleted)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := newTestAccount()
	_ = a.AppendDirectReferral(DirectReferral{Username: "bob", JoinedAt: now})
	at := now
	a.LastCheckIn = &at

	c := a.Clone()
	c.DirectReferrals[0].Username = "mallory"
	c.ReferralRewards[0].Claimed = true
	*c.LastCheckIn = now.Add(time.Hour)

	if a.DirectReferrals[0].Username != "bob" || a.ReferralRewards[0].Claimed || !a.LastCheckIn.Equal(now) {
		t.Fatal("Clone shares state with the original")
	}
}

func TestErrorWithDoesNotMutateSentinel(t *testing.T) {
	e := ErrInsufficientEnergy.With("current", int64(0), "required", int64(1))
	if ErrInsufficientEnergy.Details != nil {
		t.Fatal("sentinel mutated")
	}
	if !errors.Is(e, ErrInsufficientEnergy) || errors.Is(e, ErrInsufficientFunds) {
		t.Fatal("errors.Is must match by code")
	}
	if e.Kind() != KindInsufficientResource {
		t.Fatalf("kind = %s", e.Kind())
	}
	if e.Details["required"] != int64(1) {
		t.Fatalf("details = %v", e.Details)
	}
}
