package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/model"
)

type balanceKey struct {
	wallet string
	farmID int64
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu            sync.RWMutex
	affiliates    map[string]*model.Affiliate
	periods       map[int64]*model.FarmPeriod
	contributions map[int64]*model.BetContribution
	balances      map[balanceKey]*model.WalletBalance
	nextFarmID    int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		affiliates:    make(map[string]*model.Affiliate),
		periods:       make(map[int64]*model.FarmPeriod),
		contributions: make(map[int64]*model.BetContribution),
		balances:      make(map[balanceKey]*model.WalletBalance),
		nextFarmID:    1,
	}
}

func (s *MemoryStore) CreateAffiliate(_ context.Context, a *model.Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.affiliates[a.Wallet]; ok {
		return fmt.Errorf("affiliate %s already exists", a.Wallet)
	}
	copy := *a
	s.affiliates[a.Wallet] = &copy
	return nil
}

func (s *MemoryStore) GetAffiliate(_ context.Context, wallet string) (*model.Affiliate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.affiliates[wallet]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) SetAffiliatePercent(_ context.Context, wallet string, percent int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.affiliates[wallet]
	if !ok {
		return ErrNotFound
	}
	a.Percent = percent
	return nil
}

func (s *MemoryStore) CreateFarmPeriod(_ context.Context, p *model.FarmPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.FarmID = s.nextFarmID
	s.nextFarmID++

	copy := *p
	s.periods[p.FarmID] = &copy
	return nil
}

func (s *MemoryStore) GetFarmPeriod(_ context.Context, farmID int64) (*model.FarmPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.periods[farmID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) ListFarmPeriods(_ context.Context) ([]model.FarmPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]model.FarmPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].StartTime.Equal(periods[j].StartTime) {
			return periods[i].FarmID < periods[j].FarmID
		}
		return periods[i].StartTime.Before(periods[j].StartTime)
	})
	return periods, nil
}

func (s *MemoryStore) GetContribution(_ context.Context, betID int64) (*model.BetContribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contributions[betID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *c
	return &copy, nil
}

func (s *MemoryStore) RecordContribution(_ context.Context, c *model.BetContribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contributions[c.BetID]; ok {
		return fmt.Errorf("contribution for bet %d already exists", c.BetID)
	}

	// Zero-stake contributions (winning bets) carry only the dedupe mark.
	if c.WeightedStake.IsPositive() {
		p, ok := s.periods[c.FarmID]
		if !ok {
			return ErrNotFound
		}

		s.credit(c.Bettor, c.FarmID, c.BettorShare)
		if c.Affiliate != "" && c.AffiliateShare.IsPositive() {
			s.credit(c.Affiliate, c.FarmID, c.AffiliateShare)
		}
		p.TotalWeightedStake = p.TotalWeightedStake.Add(c.WeightedStake)
	}

	copy := *c
	s.contributions[c.BetID] = &copy
	return nil
}

// credit must be called with the write lock held.
func (s *MemoryStore) credit(wallet string, farmID int64, amount decimal.Decimal) {
	key := balanceKey{wallet: wallet, farmID: farmID}
	b, ok := s.balances[key]
	if !ok {
		b = &model.WalletBalance{Wallet: wallet, FarmID: farmID}
		s.balances[key] = b
	}
	b.WeightedStake = b.WeightedStake.Add(amount)
}

func (s *MemoryStore) ListContributionsByPeriod(_ context.Context, farmID int64) ([]model.BetContribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.BetContribution
	for _, c := range s.contributions {
		if c.FarmID == farmID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BetID < result[j].BetID })
	return result, nil
}

func (s *MemoryStore) GetWalletBalance(_ context.Context, wallet string, farmID int64) (*model.WalletBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[balanceKey{wallet: wallet, farmID: farmID}]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *b
	return &copy, nil
}

func (s *MemoryStore) SettleClaim(_ context.Context, wallet string, farmID int64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[balanceKey{wallet: wallet, farmID: farmID}]
	if !ok {
		return ErrNotFound
	}
	if b.Claimed {
		return fmt.Errorf("balance for %s in period %d already claimed", wallet, farmID)
	}
	b.Claimed = true
	b.ClaimedAmount = amount
	return nil
}
