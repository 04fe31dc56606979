// Package store defines the persistence interface for the farming engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/model"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// RecordContribution and SettleClaim are single calls so an implementation
// can commit the dedupe mark, balance credits, and period-total bump in one
// transaction: bet registration and claiming are all-or-nothing.
type Store interface {
	// --- Affiliates ---

	// CreateAffiliate persists a newly registered affiliate.
	CreateAffiliate(ctx context.Context, a *model.Affiliate) error

	// GetAffiliate retrieves an affiliate by wallet. ErrNotFound when the
	// wallet was never registered.
	GetAffiliate(ctx context.Context, wallet string) (*model.Affiliate, error)

	// SetAffiliatePercent overwrites a registered affiliate's percent.
	SetAffiliatePercent(ctx context.Context, wallet string, percent int64) error

	// --- Farm periods ---

	// CreateFarmPeriod persists a new period and assigns its sequential
	// FarmID on the passed struct.
	CreateFarmPeriod(ctx context.Context, p *model.FarmPeriod) error

	// GetFarmPeriod retrieves a period by its ID.
	GetFarmPeriod(ctx context.Context, farmID int64) (*model.FarmPeriod, error)

	// ListFarmPeriods returns all periods ordered by start time.
	ListFarmPeriods(ctx context.Context) ([]model.FarmPeriod, error)

	// --- Contributions ---

	// GetContribution retrieves the contribution recorded for a bet.
	// ErrNotFound when the bet was never registered.
	GetContribution(ctx context.Context, betID int64) (*model.BetContribution, error)

	// RecordContribution atomically inserts the contribution, credits the
	// bettor's and affiliate's wallet balances, and adds the full weighted
	// stake to the owning period's total. A zero-stake contribution (a
	// winning bet's dedupe mark) inserts the record only.
	RecordContribution(ctx context.Context, c *model.BetContribution) error

	// ListContributionsByPeriod returns all contributions in a period.
	ListContributionsByPeriod(ctx context.Context, farmID int64) ([]model.BetContribution, error)

	// --- Wallet balances ---

	// GetWalletBalance returns the accumulated weighted stake and claimed
	// flag for (wallet, farmID). ErrNotFound when nothing was accumulated.
	GetWalletBalance(ctx context.Context, wallet string, farmID int64) (*model.WalletBalance, error)

	// SettleClaim atomically marks (wallet, farmID) claimed and records the
	// paid amount. Fails if already claimed.
	SettleClaim(ctx context.Context, wallet string, farmID int64, amount decimal.Decimal) error
}
