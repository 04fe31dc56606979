package farming

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/funding"
	"github.com/atmx/farming-engine/internal/market"
	"github.com/atmx/farming-engine/internal/store"
)

const operator = "0xOPERATOR"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testClock is a settable time source for the service.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time  { return c.now }
func (c *testClock) Set(t time.Time) { c.now = t }

func newTestService(t *testing.T) (*Service, *market.MemoryMarket, *funding.MemoryBank, *testClock) {
	t.Helper()

	st := store.NewMemoryStore()
	mkt := market.NewMemoryMarket()
	bank := funding.NewMemoryBank()
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	svc := NewService(st, mkt, bank, nil, 500, []string{operator})
	svc.SetClock(clock.Now)
	return svc, mkt, bank, clock
}

func mustStartPeriod(t *testing.T, svc *Service, bank *funding.MemoryBank, clock *testClock,
	start time.Time, duration time.Duration, reward decimal.Decimal) int64 {
	t.Helper()

	bank.Mint(operator, reward)
	period, err := svc.StartFarming(context.Background(), operator, start, duration, reward)
	if err != nil {
		t.Fatalf("StartFarming: %v", err)
	}
	return period.FarmID
}

func TestStartFarming(t *testing.T) {
	svc, _, bank, clock := newTestService(t)
	ctx := context.Background()
	reward := dec("1000000000000000000000")

	t.Run("requires operator", func(t *testing.T) {
		_, err := svc.StartFarming(ctx, "0xNOBODY", clock.Now().Add(time.Hour), time.Hour, reward)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects past start", func(t *testing.T) {
		_, err := svc.StartFarming(ctx, operator, clock.Now().Add(-time.Minute), time.Hour, reward)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("rejects start equal to now", func(t *testing.T) {
		_, err := svc.StartFarming(ctx, operator, clock.Now(), time.Hour, reward)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("rejects zero duration", func(t *testing.T) {
		_, err := svc.StartFarming(ctx, operator, clock.Now().Add(time.Hour), 0, reward)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("fails without funds", func(t *testing.T) {
		_, err := svc.StartFarming(ctx, operator, clock.Now().Add(time.Hour), time.Hour, reward)
		if !errors.Is(err, ErrFundingFailed) {
			t.Fatalf("expected ErrFundingFailed, got %v", err)
		}
		if periods, _ := svc.ListFarmPeriods(ctx); len(periods) != 0 {
			t.Fatalf("failed funding must leave no period behind, got %d", len(periods))
		}
	})

	t.Run("pulls the reward into the pool", func(t *testing.T) {
		bank.Mint(operator, reward)
		period, err := svc.StartFarming(ctx, operator, clock.Now().Add(time.Hour), 24*time.Hour, reward)
		if err != nil {
			t.Fatalf("StartFarming: %v", err)
		}
		if period.FarmID == 0 {
			t.Fatal("expected assigned farm id")
		}
		if !bank.PoolBalance().Equal(reward) {
			t.Fatalf("pool = %s, want %s", bank.PoolBalance(), reward)
		}
		if !bank.Balance(operator).IsZero() {
			t.Fatalf("operator balance = %s, want 0", bank.Balance(operator))
		}
		if !period.TotalWeightedStake.IsZero() {
			t.Fatalf("new period total = %s, want 0", period.TotalWeightedStake)
		}
	})
}

func TestAffiliateRegistry(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	aff := "0xAFF"

	if err := svc.RegisterAffiliate(ctx, "0xNOBODY", aff); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := svc.RegisterAffiliate(ctx, operator, aff); err != nil {
		t.Fatalf("RegisterAffiliate: %v", err)
	}
	// Registering twice is a no-op.
	if err := svc.RegisterAffiliate(ctx, operator, aff); err != nil {
		t.Fatalf("second RegisterAffiliate: %v", err)
	}

	// Fresh affiliates start at zero percent.
	if p, _ := svc.AffiliatePercent(ctx, aff); p != 0 {
		t.Fatalf("fresh percent = %d, want 0", p)
	}

	if err := svc.SetAffiliatePercent(ctx, aff, 500); err != nil {
		t.Fatalf("SetAffiliatePercent: %v", err)
	}
	if p, _ := svc.AffiliatePercent(ctx, aff); p != 500 {
		t.Fatalf("percent = %d, want 500", p)
	}

	if err := svc.SetAffiliatePercent(ctx, aff, 501); !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected ErrPercentOutOfRange above max, got %v", err)
	}
	if err := svc.SetAffiliatePercent(ctx, aff, -1); !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected ErrPercentOutOfRange below zero, got %v", err)
	}
	if err := svc.SetAffiliatePercent(ctx, "0xUNKNOWN", 100); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}

	// Unregistered wallets read as zero percent, never as an error.
	if p, err := svc.AffiliatePercent(ctx, "0xUNKNOWN"); err != nil || p != 0 {
		t.Fatalf("unregistered percent = %d, %v; want 0, nil", p, err)
	}
}

func TestSetOperator(t *testing.T) {
	svc, _, bank, clock := newTestService(t)
	ctx := context.Background()
	newOp := "0xNEWOP"
	reward := dec("1000000000000000000")

	if err := svc.SetOperator(newOp, newOp, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("self-grant must fail, got %v", err)
	}

	if err := svc.SetOperator(operator, newOp, true); err != nil {
		t.Fatalf("SetOperator grant: %v", err)
	}
	bank.Mint(newOp, reward)
	if _, err := svc.StartFarming(ctx, newOp, clock.Now().Add(time.Hour), time.Hour, reward); err != nil {
		t.Fatalf("granted operator StartFarming: %v", err)
	}

	if err := svc.SetOperator(operator, newOp, false); err != nil {
		t.Fatalf("SetOperator revoke: %v", err)
	}
	if _, err := svc.StartFarming(ctx, newOp, clock.Now().Add(time.Hour), time.Hour, reward); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked operator must fail, got %v", err)
	}
}

// seedLosingBet puts a bet on a resolved condition where the bet's outcome
// lost, so registration produces a weighted-stake contribution.
func seedLosingBet(mkt *market.MemoryMarket, betID int64, owner, affiliate string,
	stake, odds decimal.Decimal, placedAt time.Time) {

	condID := betID * 100
	mkt.PutBet(market.Bet{
		ID:          betID,
		Owner:       owner,
		Stake:       stake,
		ConditionID: condID,
		OutcomeID:   1,
		Affiliate:   affiliate,
		PlacedAt:    placedAt,
	}, odds)
	mkt.PutCondition(market.Condition{ID: condID})
	mkt.Resolve(condID, 2) // outcome 1 lost
}

// TestRewardDistribution walks the full lifecycle with three losing bets,
// two affiliates at different revenue shares, and exact expected payouts.
func TestRewardDistribution(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	const (
		bettor1 = "0xBETTOR1"
		bettor2 = "0xBETTOR2"
		bettor3 = "0xBETTOR3"
		aff1    = "0xAFF1"
		aff2    = "0xAFF2"
	)

	// Affiliate 1 takes the maximum 50%, affiliate 2 takes 20%.
	for wallet, percent := range map[string]int64{aff1: 500, aff2: 200} {
		if err := svc.RegisterAffiliate(ctx, operator, wallet); err != nil {
			t.Fatalf("RegisterAffiliate(%s): %v", wallet, err)
		}
		if err := svc.SetAffiliatePercent(ctx, wallet, percent); err != nil {
			t.Fatalf("SetAffiliatePercent(%s): %v", wallet, err)
		}
	}

	reward := dec("1500000000000000000000") // 1500 tokens
	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, reward)

	placedAt := start.Add(2 * time.Hour)
	seedLosingBet(mkt, 1, bettor1, aff1, dec("100000000000000000000"), dec("1.904761904"), placedAt)
	seedLosingBet(mkt, 2, bettor2, aff1, dec("1000000000000000000000"), dec("1.838235529"), placedAt)
	seedLosingBet(mkt, 3, bettor3, aff2, dec("500000000000000000000"), dec("1.732942614"), placedAt)

	clock.Set(start.Add(3 * time.Hour)) // inside the window

	// weightedStake = stake * (odds - 1), floored to whole minimal units.
	wantWeighted := map[int64]string{
		1: "90476190400000000000",
		2: "838235529000000000000",
		3: "366471307000000000000",
	}
	for betID := int64(1); betID <= 3; betID++ {
		contrib, err := svc.RegisterBet(ctx, betID)
		if err != nil {
			t.Fatalf("RegisterBet(%d): %v", betID, err)
		}
		if got := contrib.WeightedStake.String(); got != wantWeighted[betID] {
			t.Errorf("bet %d weighted stake = %s, want %s", betID, got, wantWeighted[betID])
		}
		if !contrib.BettorShare.Add(contrib.AffiliateShare).Equal(contrib.WeightedStake) {
			t.Errorf("bet %d shares do not sum to weighted stake", betID)
		}
	}

	period, err := svc.FarmPeriod(ctx, farmID)
	if err != nil {
		t.Fatalf("FarmPeriod: %v", err)
	}
	if got, want := period.TotalWeightedStake.String(), "1295183026400000000000"; got != want {
		t.Fatalf("period total = %s, want %s", got, want)
	}

	// Claims open once the window ends.
	clock.Set(period.EndTime().Add(time.Second))

	claims := []struct {
		wallet string
		want   string
	}{
		{bettor1, "52391933353705970092"},
		{bettor2, "485395989551704952763"},
		{bettor3, "339539323351342523430"},
		{aff1, "537787922905410922855"},
		{aff2, "84884830837835630857"},
	}

	paid := decimal.Zero
	for _, c := range claims {
		// The reward query must agree with the claim that follows.
		quoted, err := svc.RewardByWallet(ctx, c.wallet, farmID)
		if err != nil {
			t.Fatalf("RewardByWallet(%s): %v", c.wallet, err)
		}
		amount, err := svc.ClaimReward(ctx, c.wallet, farmID)
		if err != nil {
			t.Fatalf("ClaimReward(%s): %v", c.wallet, err)
		}
		if amount.String() != c.want {
			t.Errorf("claim %s = %s, want %s", c.wallet, amount, c.want)
		}
		if !quoted.Equal(amount) {
			t.Errorf("quote %s = %s, claim paid %s", c.wallet, quoted, amount)
		}
		if !bank.Balance(c.wallet).Equal(amount) {
			t.Errorf("bank balance %s = %s, want %s", c.wallet, bank.Balance(c.wallet), amount)
		}
		paid = paid.Add(amount)
	}

	// Floor division guarantees total payout never exceeds the funded pool;
	// truncation dust stays behind.
	if paid.GreaterThan(reward) {
		t.Fatalf("paid %s exceeds funded %s", paid, reward)
	}
	if !bank.PoolBalance().Equal(reward.Sub(paid)) {
		t.Fatalf("pool remainder = %s, want %s", bank.PoolBalance(), reward.Sub(paid))
	}

	// Claimed wallets read as zero afterward.
	for _, c := range claims {
		if v, _ := svc.RewardByWallet(ctx, c.wallet, farmID); !v.IsZero() {
			t.Errorf("post-claim reward %s = %s, want 0", c.wallet, v)
		}
	}
}

func TestRegisterBet_Duplicate(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	seedLosingBet(mkt, 7, "0xB", "", dec("100000000000000000000"), dec("2"), start.Add(time.Hour))
	clock.Set(start.Add(2 * time.Hour))

	if _, err := svc.RegisterBet(ctx, 7); err != nil {
		t.Fatalf("first RegisterBet: %v", err)
	}
	if _, err := svc.RegisterBet(ctx, 7); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterBet_WinnerExcluded(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))

	mkt.PutBet(market.Bet{
		ID: 9, Owner: "0xWINNER", Stake: dec("100000000000000000000"),
		ConditionID: 900, OutcomeID: 1, PlacedAt: start.Add(time.Hour),
	}, dec("2"))
	mkt.PutCondition(market.Condition{ID: 900})
	mkt.Resolve(900, 1) // outcome 1 won

	clock.Set(start.Add(2 * time.Hour))

	contrib, err := svc.RegisterBet(ctx, 9)
	if err != nil {
		t.Fatalf("RegisterBet: %v", err)
	}
	if !contrib.WeightedStake.IsZero() {
		t.Fatalf("winner weighted stake = %s, want 0", contrib.WeightedStake)
	}

	// The mark still dedupes.
	if _, err := svc.RegisterBet(ctx, 9); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	// Winners never accrue a claim.
	clock.Set(start.Add(25 * time.Hour))
	if _, err := svc.ClaimReward(ctx, "0xWINNER", farmID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestRegisterBet_Unsettled(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))

	mkt.PutBet(market.Bet{
		ID: 11, Owner: "0xB", Stake: dec("100000000000000000000"),
		ConditionID: 1100, OutcomeID: 1, PlacedAt: start.Add(time.Hour),
	}, dec("2"))
	mkt.PutCondition(market.Condition{ID: 1100}) // never resolved

	clock.Set(start.Add(2 * time.Hour))
	if _, err := svc.RegisterBet(ctx, 11); !errors.Is(err, ErrBetNotSettled) {
		t.Fatalf("expected ErrBetNotSettled, got %v", err)
	}

	// Not a terminal failure: the bet registers fine after resolution.
	mkt.Resolve(1100, 2)
	if _, err := svc.RegisterBet(ctx, 11); err != nil {
		t.Fatalf("RegisterBet after resolution: %v", err)
	}
}

func TestRegisterBet_NoPeriod(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))

	// Placed before the window opened.
	seedLosingBet(mkt, 13, "0xB", "", dec("100000000000000000000"), dec("2"), start.Add(-time.Minute))
	clock.Set(start.Add(time.Hour))

	if _, err := svc.RegisterBet(ctx, 13); !errors.Is(err, ErrNoActivePeriod) {
		t.Fatalf("expected ErrNoActivePeriod, got %v", err)
	}
}

func TestRegisterBet_PeriodClosed(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	seedLosingBet(mkt, 17, "0xB", "", dec("100000000000000000000"), dec("2"), start.Add(time.Hour))

	// Registration arrives after the owning window already ended.
	clock.Set(start.Add(25 * time.Hour))
	if _, err := svc.RegisterBet(ctx, 17); !errors.Is(err, ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}

func TestClaimReward_Gates(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	seedLosingBet(mkt, 21, "0xB", "", dec("100000000000000000000"), dec("2"), start.Add(time.Hour))

	clock.Set(start.Add(2 * time.Hour))
	if _, err := svc.RegisterBet(ctx, 21); err != nil {
		t.Fatalf("RegisterBet: %v", err)
	}

	// Claiming inside the window is refused.
	if _, err := svc.ClaimReward(ctx, "0xB", farmID); !errors.Is(err, ErrPeriodNotEnded) {
		t.Fatalf("expected ErrPeriodNotEnded, got %v", err)
	}
	// Boundary: the instant the window ends, claims open.
	clock.Set(start.Add(24 * time.Hour))
	amount, err := svc.ClaimReward(ctx, "0xB", farmID)
	if err != nil {
		t.Fatalf("ClaimReward at end: %v", err)
	}
	// Sole contributor takes the full pool.
	if !amount.Equal(dec("1000000000000000000000")) {
		t.Fatalf("claim = %s, want full pool", amount)
	}

	// One-shot: second claim is terminal.
	if _, err := svc.ClaimReward(ctx, "0xB", farmID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("second claim: expected ErrNothingToClaim, got %v", err)
	}
	// Wallets with no accumulated stake have nothing to claim.
	if _, err := svc.ClaimReward(ctx, "0xSTRANGER", farmID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("stranger claim: expected ErrNothingToClaim, got %v", err)
	}
	// Unknown periods surface as not found.
	if _, err := svc.ClaimReward(ctx, "0xB", 999); !errors.Is(err, ErrNoActivePeriod) {
		t.Fatalf("unknown farm: expected ErrNoActivePeriod, got %v", err)
	}
}

// A percent change applies to bets registered afterward only; contributions
// already split keep their recorded shares.
func TestAffiliatePercentNotRetroactive(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()
	aff := "0xAFF"

	if err := svc.RegisterAffiliate(ctx, operator, aff); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetAffiliatePercent(ctx, aff, 100); err != nil {
		t.Fatal(err)
	}

	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	stake, odds := dec("100000000000000000000"), dec("2")
	seedLosingBet(mkt, 31, "0xB1", aff, stake, odds, start.Add(time.Hour))
	seedLosingBet(mkt, 32, "0xB2", aff, stake, odds, start.Add(time.Hour))

	clock.Set(start.Add(2 * time.Hour))
	first, err := svc.RegisterBet(ctx, 31)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SetAffiliatePercent(ctx, aff, 400); err != nil {
		t.Fatal(err)
	}
	second, err := svc.RegisterBet(ctx, 32)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := first.AffiliateShare.String(), "10000000000000000000"; got != want {
		t.Errorf("first affiliate share = %s, want %s (10%%)", got, want)
	}
	if got, want := second.AffiliateShare.String(), "40000000000000000000"; got != want {
		t.Errorf("second affiliate share = %s, want %s (40%%)", got, want)
	}

	contribs, err := svc.ListContributions(ctx, farmID)
	if err != nil {
		t.Fatal(err)
	}
	if len(contribs) != 2 {
		t.Fatalf("contributions = %d, want 2", len(contribs))
	}
}

// A registered affiliate that leaves its percent at zero routes the full
// weighted stake to the bettor and accrues no claim of its own.
func TestZeroPercentAffiliate(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()
	aff := "0xAFF0"

	if err := svc.RegisterAffiliate(ctx, operator, aff); err != nil {
		t.Fatal(err)
	}

	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	seedLosingBet(mkt, 41, "0xB", aff, dec("100000000000000000000"), dec("2"), start.Add(time.Hour))

	clock.Set(start.Add(2 * time.Hour))
	contrib, err := svc.RegisterBet(ctx, 41)
	if err != nil {
		t.Fatal(err)
	}
	if !contrib.AffiliateShare.IsZero() {
		t.Fatalf("affiliate share = %s, want 0", contrib.AffiliateShare)
	}
	if !contrib.BettorShare.Equal(contrib.WeightedStake) {
		t.Fatalf("bettor share = %s, want full %s", contrib.BettorShare, contrib.WeightedStake)
	}

	clock.Set(start.Add(25 * time.Hour))
	if _, err := svc.ClaimReward(ctx, aff, farmID); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim for zero-percent affiliate, got %v", err)
	}
}

// Overlapping windows are allowed; the earliest-starting match owns the bet.
func TestOverlappingPeriods(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start1 := clock.Now().Add(time.Hour)
	start2 := start1.Add(2 * time.Hour)
	farm1 := mustStartPeriod(t, svc, bank, clock, start1, 24*time.Hour, dec("1000000000000000000000"))
	farm2 := mustStartPeriod(t, svc, bank, clock, start2, 24*time.Hour, dec("2000000000000000000000"))
	if farm1 == farm2 {
		t.Fatal("expected distinct farm ids")
	}

	// Placed while both windows are open.
	seedLosingBet(mkt, 51, "0xB", "", dec("100000000000000000000"), dec("2"), start2.Add(time.Hour))
	clock.Set(start2.Add(2 * time.Hour))

	contrib, err := svc.RegisterBet(ctx, 51)
	if err != nil {
		t.Fatal(err)
	}
	if contrib.FarmID != farm1 {
		t.Fatalf("contribution assigned to farm %d, want earliest-starting %d", contrib.FarmID, farm1)
	}

	// Placed after farm1 ended but inside farm2.
	placedAt := start1.Add(25 * time.Hour)
	seedLosingBet(mkt, 52, "0xB", "", dec("100000000000000000000"), dec("2"), placedAt)
	clock.Set(placedAt.Add(time.Minute))
	contrib2, err := svc.RegisterBet(ctx, 52)
	if err != nil {
		t.Fatal(err)
	}
	if contrib2.FarmID != farm2 {
		t.Fatalf("contribution assigned to farm %d, want %d", contrib2.FarmID, farm2)
	}
}

func TestCurrentFarmPeriod(t *testing.T) {
	svc, _, bank, clock := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CurrentFarmPeriod(ctx, clock.Now()); !errors.Is(err, ErrNoActivePeriod) {
		t.Fatalf("expected ErrNoActivePeriod with no periods, got %v", err)
	}

	start := clock.Now().Add(time.Hour)
	farmID := mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))

	p, err := svc.CurrentFarmPeriod(ctx, start)
	if err != nil {
		t.Fatalf("start is inside the window: %v", err)
	}
	if p.FarmID != farmID {
		t.Fatalf("farm id = %d, want %d", p.FarmID, farmID)
	}

	// End instant is exclusive.
	if _, err := svc.CurrentFarmPeriod(ctx, p.EndTime()); !errors.Is(err, ErrNoActivePeriod) {
		t.Fatalf("end instant must be outside the window, got %v", err)
	}
}

// Odds at or below even money produce zero weighted stake rather than a
// negative contribution.
func TestRegisterBet_SubEvenOdds(t *testing.T) {
	svc, mkt, bank, clock := newTestService(t)
	ctx := context.Background()

	start := clock.Now().Add(time.Hour)
	mustStartPeriod(t, svc, bank, clock, start, 24*time.Hour, dec("1000000000000000000000"))
	seedLosingBet(mkt, 61, "0xB", "", dec("100000000000000000000"), dec("0.9"), start.Add(time.Hour))

	clock.Set(start.Add(2 * time.Hour))
	contrib, err := svc.RegisterBet(ctx, 61)
	if err != nil {
		t.Fatalf("RegisterBet: %v", err)
	}
	if !contrib.WeightedStake.IsZero() {
		t.Fatalf("weighted stake = %s, want 0", contrib.WeightedStake)
	}
}
