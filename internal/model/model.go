// Package model defines the core domain types shared across the farming engine.
// All monetary values use shopspring/decimal — never float64 for money.
// Token amounts are 18-decimal fixed-point minimal units (integer-valued
// decimals); odds and percentages are the only fractional quantities.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PercentScale is the denominator of affiliate percentages: 1000 == 100%.
const PercentScale = 1000

// Affiliate is a wallet entitled to a share of the farming reward otherwise
// due to bettors it referred. Registration is one-way: once registered, an
// affiliate is never unregistered.
type Affiliate struct {
	Wallet       string    `json:"wallet" db:"wallet"`
	Percent      int64     `json:"percent" db:"percent"` // scale: 1000 = 100%
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// FarmPeriod is a funded, time-boxed reward pool. RewardAmount is immutable
// once set; TotalWeightedStake grows while the window is open and freezes
// at close.
type FarmPeriod struct {
	FarmID             int64           `json:"farm_id" db:"farm_id"`
	StartTime          time.Time       `json:"start_time" db:"start_time"`
	Duration           time.Duration   `json:"duration" db:"duration"`
	RewardAmount       decimal.Decimal `json:"reward_amount" db:"reward_amount"`
	TotalWeightedStake decimal.Decimal `json:"total_weighted_stake" db:"total_weighted_stake"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// EndTime returns the exclusive end of the period's window.
func (p *FarmPeriod) EndTime() time.Time {
	return p.StartTime.Add(p.Duration)
}

// Contains reports whether ts falls inside [StartTime, StartTime+Duration).
func (p *FarmPeriod) Contains(ts time.Time) bool {
	return !ts.Before(p.StartTime) && ts.Before(p.EndTime())
}

// BetContribution is the immutable record produced by registering one
// settled bet. Created at most once per BetID; a winning bet produces a
// record with zero weighted stake and FarmID 0.
type BetContribution struct {
	ID             string          `json:"id" db:"id"`
	BetID          int64           `json:"bet_id" db:"bet_id"`
	FarmID         int64           `json:"farm_id" db:"farm_id"`
	Bettor         string          `json:"bettor" db:"bettor"`
	Affiliate      string          `json:"affiliate,omitempty" db:"affiliate"` // empty when none
	WeightedStake  decimal.Decimal `json:"weighted_stake" db:"weighted_stake"`
	BettorShare    decimal.Decimal `json:"bettor_share" db:"bettor_share"`
	AffiliateShare decimal.Decimal `json:"affiliate_share" db:"affiliate_share"`
	RegisteredAt   time.Time       `json:"registered_at" db:"registered_at"`
}

// WalletBalance is the accumulated weighted stake of one wallet within one
// farm period, plus the one-shot claimed flag.
type WalletBalance struct {
	Wallet        string          `json:"wallet" db:"wallet"`
	FarmID        int64           `json:"farm_id" db:"farm_id"`
	WeightedStake decimal.Decimal `json:"weighted_stake" db:"weighted_stake"`
	Claimed       bool            `json:"claimed" db:"claimed"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount" db:"claimed_amount"`
}
