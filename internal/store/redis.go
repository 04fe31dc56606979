package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
//
// Farm-period totals and wallet balances change on every registration, so
// they are cached with the configured TTL and invalidated aggressively.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Affiliates ---

func (s *CachedStore) CreateAffiliate(ctx context.Context, a *model.Affiliate) error {
	if err := s.primary.CreateAffiliate(ctx, a); err != nil {
		return err
	}
	s.cacheJSON(ctx, affiliateKey(a.Wallet), a)
	return nil
}

func (s *CachedStore) GetAffiliate(ctx context.Context, wallet string) (*model.Affiliate, error) {
	var a model.Affiliate
	if s.getJSON(ctx, affiliateKey(wallet), &a) {
		return &a, nil
	}

	got, err := s.primary.GetAffiliate(ctx, wallet)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, affiliateKey(wallet), got)
	return got, nil
}

func (s *CachedStore) SetAffiliatePercent(ctx context.Context, wallet string, percent int64) error {
	if err := s.primary.SetAffiliatePercent(ctx, wallet, percent); err != nil {
		return err
	}
	s.rdb.Del(ctx, affiliateKey(wallet))
	return nil
}

// --- Farm periods ---

func (s *CachedStore) CreateFarmPeriod(ctx context.Context, p *model.FarmPeriod) error {
	if err := s.primary.CreateFarmPeriod(ctx, p); err != nil {
		return err
	}
	s.cacheJSON(ctx, periodKey(p.FarmID), p)
	return nil
}

func (s *CachedStore) GetFarmPeriod(ctx context.Context, farmID int64) (*model.FarmPeriod, error) {
	var p model.FarmPeriod
	if s.getJSON(ctx, periodKey(farmID), &p) {
		return &p, nil
	}

	got, err := s.primary.GetFarmPeriod(ctx, farmID)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, periodKey(farmID), got)
	return got, nil
}

// ListFarmPeriods is a passthrough: period listing is rare and must always
// reflect the latest totals.
func (s *CachedStore) ListFarmPeriods(ctx context.Context) ([]model.FarmPeriod, error) {
	return s.primary.ListFarmPeriods(ctx)
}

// --- Contributions ---

func (s *CachedStore) GetContribution(ctx context.Context, betID int64) (*model.BetContribution, error) {
	return s.primary.GetContribution(ctx, betID)
}

func (s *CachedStore) RecordContribution(ctx context.Context, c *model.BetContribution) error {
	if err := s.primary.RecordContribution(ctx, c); err != nil {
		return err
	}

	// Invalidate everything the contribution touched; next read re-populates.
	keys := []string{periodKey(c.FarmID), balanceCacheKey(c.Bettor, c.FarmID)}
	if c.Affiliate != "" {
		keys = append(keys, balanceCacheKey(c.Affiliate, c.FarmID))
	}
	s.rdb.Del(ctx, keys...)
	return nil
}

func (s *CachedStore) ListContributionsByPeriod(ctx context.Context, farmID int64) ([]model.BetContribution, error) {
	return s.primary.ListContributionsByPeriod(ctx, farmID)
}

// --- Wallet balances ---

func (s *CachedStore) GetWalletBalance(ctx context.Context, wallet string, farmID int64) (*model.WalletBalance, error) {
	var b model.WalletBalance
	if s.getJSON(ctx, balanceCacheKey(wallet, farmID), &b) {
		return &b, nil
	}

	got, err := s.primary.GetWalletBalance(ctx, wallet, farmID)
	if err != nil {
		return nil, err
	}
	s.cacheJSON(ctx, balanceCacheKey(wallet, farmID), got)
	return got, nil
}

func (s *CachedStore) SettleClaim(ctx context.Context, wallet string, farmID int64, amount decimal.Decimal) error {
	if err := s.primary.SettleClaim(ctx, wallet, farmID, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, balanceCacheKey(wallet, farmID))
	return nil
}

// --- Cache helpers ---

func (s *CachedStore) cacheJSON(ctx context.Context, key string, v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func (s *CachedStore) getJSON(ctx context.Context, key string, v interface{}) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func affiliateKey(wallet string) string { return fmt.Sprintf("affiliate:%s", wallet) }
func periodKey(farmID int64) string     { return fmt.Sprintf("period:%d", farmID) }

func balanceCacheKey(wallet string, farmID int64) string {
	return fmt.Sprintf("balance:%d:%s", farmID, wallet)
}
