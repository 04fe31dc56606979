// Package farming implements the reward-accounting core: the affiliate
// registry, farm-period lifecycle, bet ingestion, and the proportional
// claim ledger, plus the HTTP handlers that expose them.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Token amounts are integer-valued decimals in 18-decimal minimal units;
// proportional shares use floor division so the sum of all claims can
// never exceed the funded pool.
package farming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/funding"
	"github.com/atmx/farming-engine/internal/market"
	"github.com/atmx/farming-engine/internal/metrics"
	"github.com/atmx/farming-engine/internal/model"
	"github.com/atmx/farming-engine/internal/store"
)

var (
	// ErrUnauthorized is returned when the caller lacks the operator grant.
	ErrUnauthorized = errors.New("farming: caller is not an operator")

	// ErrInvalidWindow is returned when a period's start time is not
	// strictly in the future or its duration is zero.
	ErrInvalidWindow = errors.New("farming: invalid period window")

	// ErrFundingFailed is returned when the reward amount cannot be pulled
	// from the funding source.
	ErrFundingFailed = errors.New("farming: period funding failed")

	// ErrNotRegistered is returned when a wallet that never registered as
	// an affiliate tries to set its percent.
	ErrNotRegistered = errors.New("farming: affiliate not registered")

	// ErrPercentOutOfRange is returned for percents above the configured
	// maximum or below zero.
	ErrPercentOutOfRange = errors.New("farming: affiliate percent out of range")

	// ErrAlreadyRegistered is returned when a bet was previously processed.
	ErrAlreadyRegistered = errors.New("farming: bet already registered")

	// ErrBetNotSettled is returned while the bet's condition is unresolved.
	ErrBetNotSettled = errors.New("farming: bet not settled")

	// ErrNoActivePeriod is returned when no farm period's window contains
	// the relevant timestamp.
	ErrNoActivePeriod = errors.New("farming: no active farm period")

	// ErrPeriodClosed is returned when a contribution arrives after the
	// owning period's window ended.
	ErrPeriodClosed = errors.New("farming: farm period closed for contributions")

	// ErrPeriodNotEnded is returned for claims before the window elapses.
	ErrPeriodNotEnded = errors.New("farming: farm period not ended")

	// ErrNothingToClaim is the terminal response for a second claim, an
	// ineligible wallet, or a zero-total period.
	ErrNothingToClaim = errors.New("farming: nothing to claim")
)

var one = decimal.NewFromInt(1)

// Service is the farming engine core. A mutex serializes every
// state-mutating call (single-instance, matching the single-writer
// execution model): each registration or claim commits fully or not at all.
type Service struct {
	store  store.Store
	market market.Market
	bank   funding.Bank
	hub    *Hub // optional WebSocket hub for event broadcasts

	maxAffiliatePercent int64

	mu        sync.Mutex
	operators map[string]bool
	now       func() time.Time
}

// NewService creates the farming service. maxAffiliatePercent uses the
// 1000 == 100% scale and is clamped to that scale; operators are the
// bootstrap wallets allowed to call operator-only entry points. Pass nil
// for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, mkt market.Market, bank funding.Bank, hub *Hub,
	maxAffiliatePercent int64, operators []string) *Service {

	if maxAffiliatePercent < 0 {
		maxAffiliatePercent = 0
	}
	if maxAffiliatePercent > model.PercentScale {
		maxAffiliatePercent = model.PercentScale
	}

	ops := make(map[string]bool, len(operators))
	for _, w := range operators {
		if w != "" {
			ops[w] = true
		}
	}

	return &Service{
		store:               st,
		market:              mkt,
		bank:                bank,
		hub:                 hub,
		maxAffiliatePercent: maxAffiliatePercent,
		operators:           ops,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the service's time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Service) isOperator(wallet string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operators[wallet]
}

// SetOperator grants or revokes the operator capability. Operator-only.
func (s *Service) SetOperator(caller, wallet string, enabled bool) error {
	if !s.isOperator(caller) {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.operators[wallet] = true
	} else {
		delete(s.operators, wallet)
	}
	return nil
}

// --- AffiliateRegistry ---

// RegisterAffiliate records a wallet as a recognized affiliate with percent
// 0. Operator-only; registering an existing affiliate is a no-op.
func (s *Service) RegisterAffiliate(ctx context.Context, caller, wallet string) error {
	if !s.isOperator(caller) {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetAffiliate(ctx, wallet); err == nil {
		return nil // idempotent
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	a := &model.Affiliate{
		Wallet:       wallet,
		Percent:      0,
		RegisteredAt: s.now(),
	}
	if err := s.store.CreateAffiliate(ctx, a); err != nil {
		return err
	}

	slog.Info("affiliate registered", "wallet", wallet)
	return nil
}

// SetAffiliatePercent overwrites the caller's revenue-share percent.
// Takes effect for bets registered afterward only — never retroactive.
func (s *Service) SetAffiliatePercent(ctx context.Context, caller string, percent int64) error {
	if percent < 0 || percent > s.maxAffiliatePercent {
		return fmt.Errorf("%w: %d (max %d)", ErrPercentOutOfRange, percent, s.maxAffiliatePercent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.SetAffiliatePercent(ctx, caller, percent)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return err
	}

	slog.Info("affiliate percent updated", "wallet", caller, "percent", percent)
	return nil
}

// AffiliatePercent returns a wallet's current percent; 0 for unregistered
// wallets (never fails on absence).
func (s *Service) AffiliatePercent(ctx context.Context, wallet string) (int64, error) {
	a, err := s.store.GetAffiliate(ctx, wallet)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.Percent, nil
}

// --- FarmPeriodManager ---

// StartFarming funds and opens a new farm period. Operator-only. The
// reward amount is pulled from the caller's wallet before the period is
// created; a failed pull leaves no period behind.
func (s *Service) StartFarming(ctx context.Context, caller string, startTime time.Time,
	duration time.Duration, rewardAmount decimal.Decimal) (*model.FarmPeriod, error) {

	if !s.isOperator(caller) {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !startTime.After(now) || duration <= 0 {
		return nil, fmt.Errorf("%w: start=%s duration=%s now=%s",
			ErrInvalidWindow, startTime.Format(time.RFC3339), duration, now.Format(time.RFC3339))
	}

	if err := s.bank.Pull(ctx, caller, rewardAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFundingFailed, err)
	}

	period := &model.FarmPeriod{
		StartTime:          startTime,
		Duration:           duration,
		RewardAmount:       rewardAmount,
		TotalWeightedStake: decimal.Zero,
		CreatedAt:          now,
	}
	if err := s.store.CreateFarmPeriod(ctx, period); err != nil {
		// Return the funds: the period was never created.
		if pushErr := s.bank.Push(ctx, caller, rewardAmount); pushErr != nil {
			slog.Error("refund after failed period creation failed",
				"wallet", caller, "amount", rewardAmount.String(), "err", pushErr)
		}
		return nil, err
	}

	metrics.PeriodsStarted.Inc()
	slog.Info("farm period started",
		"farm_id", period.FarmID,
		"start", startTime.Format(time.RFC3339),
		"duration", duration.String(),
		"reward", rewardAmount.String(),
	)
	return period, nil
}

// CurrentFarmPeriod returns the period whose window contains ts. When
// operator-funded windows overlap, the earliest-starting match wins so the
// lookup stays deterministic.
func (s *Service) CurrentFarmPeriod(ctx context.Context, ts time.Time) (*model.FarmPeriod, error) {
	periods, err := s.store.ListFarmPeriods(ctx)
	if err != nil {
		return nil, err
	}

	for i := range periods {
		if periods[i].Contains(ts) {
			p := periods[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w at %s", ErrNoActivePeriod, ts.Format(time.RFC3339))
}

// FarmPeriod returns a period by ID.
func (s *Service) FarmPeriod(ctx context.Context, farmID int64) (*model.FarmPeriod, error) {
	p, err := s.store.GetFarmPeriod(ctx, farmID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: farm %d", ErrNoActivePeriod, farmID)
	}
	return p, err
}

// ListFarmPeriods returns all periods ordered by start time.
func (s *Service) ListFarmPeriods(ctx context.Context) ([]model.FarmPeriod, error) {
	return s.store.ListFarmPeriods(ctx)
}

// --- BetIngestor ---

// RegisterBet ingests one settled bet into its owning farm period.
// Permissionless: anyone (the bettor or a third-party keeper) may call it.
//
// A winning bet is marked processed with zero weighted stake — winners
// already received their payout from the market. A losing bet contributes
// weightedStake = stake * (odds - 1), split between bettor and affiliate
// with the integer remainder assigned to the bettor. The owning period is
// the one whose window contains the bet's placement timestamp.
func (s *Service) RegisterBet(ctx context.Context, betID int64) (*model.BetContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetContribution(ctx, betID); err == nil {
		metrics.BetsRegistered.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("%w: bet %d", ErrAlreadyRegistered, betID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	bet, err := s.market.GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	cond, err := s.market.GetCondition(ctx, bet.ConditionID)
	if err != nil {
		return nil, err
	}
	if !cond.Resolved {
		metrics.BetsRegistered.WithLabelValues("unsettled").Inc()
		return nil, fmt.Errorf("%w: condition %d unresolved", ErrBetNotSettled, bet.ConditionID)
	}

	now := s.now()

	// Winners are excluded from farming: record the dedupe mark only.
	if bet.OutcomeID == cond.WinningOutcomeID {
		contrib := &model.BetContribution{
			ID:             uuid.New().String(),
			BetID:          betID,
			Bettor:         bet.Owner,
			WeightedStake:  decimal.Zero,
			BettorShare:    decimal.Zero,
			AffiliateShare: decimal.Zero,
			RegisteredAt:   now,
		}
		if err := s.store.RecordContribution(ctx, contrib); err != nil {
			return nil, err
		}
		metrics.BetsRegistered.WithLabelValues("winner").Inc()
		slog.Info("winning bet marked processed", "bet_id", betID, "owner", bet.Owner)
		return contrib, nil
	}

	odds, err := s.market.GetOdds(ctx, betID)
	if err != nil {
		return nil, err
	}

	// Implied upside of the stake, truncated to whole minimal units.
	weighted := bet.Stake.Mul(odds.Sub(one)).Floor()
	if weighted.IsNegative() {
		weighted = decimal.Zero
	}

	period, err := s.CurrentFarmPeriod(ctx, bet.PlacedAt)
	if err != nil {
		metrics.BetsRegistered.WithLabelValues("no_period").Inc()
		return nil, err
	}
	if !now.Before(period.EndTime()) {
		metrics.BetsRegistered.WithLabelValues("period_closed").Inc()
		return nil, fmt.Errorf("%w: farm %d ended %s",
			ErrPeriodClosed, period.FarmID, period.EndTime().Format(time.RFC3339))
	}

	percent, err := s.AffiliatePercent(ctx, bet.Affiliate)
	if err != nil {
		return nil, err
	}

	// affiliateShare = floor(weighted * percent / 1000); the remainder goes
	// to the bettor so the two shares always sum to the full weighted stake.
	affiliateShare := decimal.Zero
	if bet.Affiliate != "" && percent > 0 {
		affiliateShare, _ = weighted.Mul(decimal.NewFromInt(percent)).
			QuoRem(decimal.NewFromInt(model.PercentScale), 0)
	}
	bettorShare := weighted.Sub(affiliateShare)

	contrib := &model.BetContribution{
		ID:             uuid.New().String(),
		BetID:          betID,
		FarmID:         period.FarmID,
		Bettor:         bet.Owner,
		Affiliate:      bet.Affiliate,
		WeightedStake:  weighted,
		BettorShare:    bettorShare,
		AffiliateShare: affiliateShare,
		RegisteredAt:   now,
	}
	if err := s.store.RecordContribution(ctx, contrib); err != nil {
		return nil, err
	}

	metrics.BetsRegistered.WithLabelValues("ok").Inc()
	metrics.WeightedStakeTotal.Add(weighted.InexactFloat64())
	slog.Info("bet registered",
		"bet_id", betID,
		"owner", bet.Owner,
		"farm_id", period.FarmID,
		"weighted_stake", weighted.String(),
		"bettor_share", bettorShare.String(),
		"affiliate", bet.Affiliate,
		"affiliate_share", affiliateShare.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:           EventBetRegistered,
			BetID:          betID,
			Wallet:         bet.Owner,
			FarmID:         period.FarmID,
			WeightedStake:  weighted.String(),
			BettorShare:    bettorShare.String(),
			Affiliate:      bet.Affiliate,
			AffiliateShare: affiliateShare.String(),
		})
	}
	return contrib, nil
}

// --- RewardLedger ---

// RewardByWallet computes the wallet's claimable share of a period's pool:
// floor(rewardAmount * accumulatedWeightedStake / totalWeightedStake).
// Returns zero once claimed, when the wallet accumulated nothing, or when
// the period has no weighted stake at all.
func (s *Service) RewardByWallet(ctx context.Context, wallet string, farmID int64) (decimal.Decimal, error) {
	period, err := s.FarmPeriod(ctx, farmID)
	if err != nil {
		return decimal.Zero, err
	}

	bal, err := s.store.GetWalletBalance(ctx, wallet, farmID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return computeReward(period, bal), nil
}

// computeReward is the proportional-share formula. Floor division bounds
// the sum of all claims by the funded reward amount; the residual dust
// stays in the pool.
func computeReward(period *model.FarmPeriod, bal *model.WalletBalance) decimal.Decimal {
	if bal.Claimed || bal.WeightedStake.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if period.TotalWeightedStake.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	reward, _ := period.RewardAmount.Mul(bal.WeightedStake).QuoRem(period.TotalWeightedStake, 0)
	return reward
}

// ClaimReward pays the caller's proportional share of a closed period and
// marks it claimed. One-shot: the claimed flag only ever goes false → true.
func (s *Service) ClaimReward(ctx context.Context, caller string, farmID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, err := s.FarmPeriod(ctx, farmID)
	if err != nil {
		return decimal.Zero, err
	}

	if s.now().Before(period.EndTime()) {
		return decimal.Zero, fmt.Errorf("%w: farm %d ends %s",
			ErrPeriodNotEnded, farmID, period.EndTime().Format(time.RFC3339))
	}

	bal, err := s.store.GetWalletBalance(ctx, caller, farmID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("%w: wallet %s farm %d", ErrNothingToClaim, caller, farmID)
	}
	if err != nil {
		return decimal.Zero, err
	}

	amount := computeReward(period, bal)
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: wallet %s farm %d", ErrNothingToClaim, caller, farmID)
	}

	// Mark claimed before moving funds: a repeated claim can never pay
	// twice even if the transfer below fails and is retried out of band.
	if err := s.store.SettleClaim(ctx, caller, farmID, amount); err != nil {
		return decimal.Zero, err
	}
	if err := s.bank.Push(ctx, caller, amount); err != nil {
		slog.Error("reward transfer failed after claim was settled",
			"wallet", caller, "farm_id", farmID, "amount", amount.String(), "err", err)
		return decimal.Zero, err
	}

	metrics.RewardsClaimed.Inc()
	slog.Info("reward claimed",
		"wallet", caller,
		"farm_id", farmID,
		"amount", amount.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:   EventRewardClaimed,
			Wallet: caller,
			FarmID: farmID,
			Amount: amount.String(),
		})
	}
	return amount, nil
}

// ListContributions returns all contributions recorded into a period.
func (s *Service) ListContributions(ctx context.Context, farmID int64) ([]model.BetContribution, error) {
	return s.store.ListContributionsByPeriod(ctx, farmID)
}
