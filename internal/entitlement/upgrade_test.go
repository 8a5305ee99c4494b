package entitlement

import (
	"testing"
	"time"

	"zentari/internal/domain"
)

func applyUpgrade(t *testing.T, r *Rules, a *domain.Account, track domain.Track, useStars bool, now time.Time) UpgradePlan {
	t.Helper()
	plan, err := r.Upgrade(a, track, useStars, now)
	if err != nil {
		t.Fatalf("Upgrade %s to %d: %v", track, a.Level(track)+1, err)
	}
	if err := a.SettleEnergy(plan.Settled.Energy, plan.Settled.Checkpoint); err != nil {
		t.Fatal(err)
	}
	if a.AutoTapBot.IsActive {
		if err := a.CreditPower(plan.Bot.Power, plan.Bot.Taps); err != nil {
			t.Fatal(err)
		}
		if err := a.AdvanceBotCheckpoint(plan.Bot.Checkpoint); err != nil {
			t.Fatal(err)
		}
	}
	if plan.Step.UsesStars() {
		if err := a.SpendStars(plan.Step.StarCost); err != nil {
			t.Fatal(err)
		}
	} else if err := a.SpendPower(plan.Step.PointCost); err != nil {
		t.Fatal(err)
	}
	if err := a.RaiseLevel(track, plan.To, plan.MaxEnergy); err != nil {
		t.Fatal(err)
	}
	if err := a.CreditPower(plan.Step.PowerReward, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Validate(r, now); err != nil {
		t.Fatalf("account invalid after upgrade: %v", err)
	}
	return plan
}

func TestUpgradeRoundTrip(t *testing.T) {
	r := Defaults()
	a := newAccount(t, r)
	a.Power = 1200

	plan := applyUpgrade(t, r, a, domain.TrackSpeed, false, t0)
	if plan.From != 1 || plan.To != 2 || plan.Step.PointCost != 1000 {
		t.Fatalf("plan = %+v", plan)
	}
	if a.SpeedLevel != 2 || a.Power != 200 {
		t.Fatalf("level/power = %d/%d; want 2/200", a.SpeedLevel, a.Power)
	}
	if a.MultiTapLevel != 1 || a.EnergyLimitLevel != 1 {
		t.Fatal("upgrade touched another track")
	}
}

func TestUpgradeSettlesBotAtOldLevels(t *testing.T) {
	r := Defaults()

	cases := []struct {
		name      string
		track     domain.Track
		settled   int64
		pendingAt time.Duration
		pending   int64
	}{
		{"multi tap", domain.TrackMultiTap, 100, 200 * time.Second, 200},
		{"speed", domain.TrackSpeed, 100, 200 * time.Second, 200},
		{"energy limit", domain.TrackEnergyLimit, 100, 200 * time.Second, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAccount(t, r)
			a.Power = 1000
			startSession(t, a, "free", 24*time.Hour)

			now := t0.Add(100 * time.Second)
			plan := applyUpgrade(t, r, a, tc.track, false, now)
			if plan.Bot.Power != tc.settled {
				t.Fatalf("settled bot power = %d; want %d", plan.Bot.Power, tc.settled)
			}
			if a.Power != tc.settled {
				t.Fatalf("power = %d; want %d", a.Power, tc.settled)
			}
			if got := r.PendingBot(a, now); got.Power != 0 {
				t.Fatalf("pending right after upgrade = %d; want 0", got.Power)
			}
			if got := r.PendingBot(a, t0.Add(tc.pendingAt)); got.Power != tc.pending {
				t.Fatalf("pending later = %d; want %d", got.Power, tc.pending)
			}
		})
	}
}

func TestUpgradeFullEnergyTrack(t *testing.T) {
	r := Defaults()
	a := newAccount(t, r)
	a.Power = 76000
	a.Stars = 850

	for level := 2; level <= domain.MaxLevel; level++ {
		applyUpgrade(t, r, a, domain.TrackEnergyLimit, level >= 6, t0)
	}
	if a.EnergyLimitLevel != 8 || a.MaxEnergy != 4000 {
		t.Fatalf("level/maxEnergy = %d/%d; want 8/4000", a.EnergyLimitLevel, a.MaxEnergy)
	}
	if a.Power != 950000 || a.Stars != 0 {
		t.Fatalf("power/stars = %d/%d; want 950000/0", a.Power, a.Stars)
	}

	for _, useStars := range []bool{false, true} {
		_, err := r.Upgrade(a, domain.TrackEnergyLimit, useStars, t0)
		wantErr(t, err, domain.ErrMaxLevelReached)
	}
}

func TestUpgradeFailures(t *testing.T) {
	r := Defaults()

	cases := []struct {
		name     string
		setup    func(a *domain.Account)
		track    domain.Track
		useStars bool
		want     error
	}{
		{"unknown track", nil, domain.Track("luck"), false, domain.ErrValidation},
		{"stars for point level", func(a *domain.Account) { a.Stars = 1000 }, domain.TrackSpeed, true, domain.ErrWrongPaymentMode},
		{"points for star level", func(a *domain.Account) { a.MultiTapLevel = 5; a.Power = 1 << 40 }, domain.TrackMultiTap, false, domain.ErrWrongPaymentMode},
		{"not enough power", func(a *domain.Account) { a.Power = 999 }, domain.TrackSpeed, false, domain.ErrInsufficientFunds},
		{"not enough stars", func(a *domain.Account) { a.SpeedLevel = 7; a.Stars = 499 }, domain.TrackSpeed, true, domain.ErrInsufficientFunds},
		{"max level", func(a *domain.Account) { a.MultiTapLevel = 8 }, domain.TrackMultiTap, true, domain.ErrMaxLevelReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAccount(t, r)
			if tc.setup != nil {
				tc.setup(a)
			}
			_, err := r.Upgrade(a, tc.track, tc.useStars, t0)
			wantErr(t, err, tc.want)
		})
	}
}

func TestUpgradeInsufficientFundsDetails(t *testing.T) {
	r := Defaults()
	a := newAccount(t, r)
	a.Power = 999
	a.CheckInPoints = 5000 // not spendable

	_, err := r.Upgrade(a, domain.TrackSpeed, false, t0)
	e := wantErr(t, err, domain.ErrInsufficientFunds)
	if e.Details["currency"] != domain.CurrencyPower || e.Details["required"] != int64(1000) || e.Details["current"] != int64(999) {
		t.Fatalf("details = %v", e.Details)
	}
}

func TestSpeedUpgradeSettlesAtOldRate(t *testing.T) {
	r := Defaults()
	a := newAccount(t, r)
	a.Energy = 0
	a.Power = 1000

	now := t0.Add(10 * time.Second)
	plan := applyUpgrade(t, r, a, domain.TrackSpeed, false, now)
	if plan.Settled.Energy != 10 {
		t.Fatalf("settled energy = %d; want 10 at speed 1", plan.Settled.Energy)
	}
	// the next 10 seconds regenerate at speed 2
	if got := r.EffectiveEnergy(a, now.Add(10*time.Second)).Energy; got != 30 {
		t.Fatalf("energy = %d; want 30", got)
	}
}

func TestUpgradeCosts(t *testing.T) {
	r := Defaults()
	a := newAccount(t, r)
	a.Power = 1000
	a.SpeedLevel = 8

	costs := r.UpgradeCosts(a)
	if len(costs) != 3 {
		t.Fatalf("costs = %d entries", len(costs))
	}
	if !costs[0].MaxLevel {
		t.Fatalf("speed at level 8 should report max level: %+v", costs[0])
	}
	if costs[1].PointCost != 1000 || !costs[1].Affordable {
		t.Fatalf("multiTap cost = %+v", costs[1])
	}
}
