// Package market defines the read-only port to the external prediction
// market. The farming engine never mutates market state; it only reads bet
// facts, condition resolutions, and the decimal odds fixed at placement
// time. Keeping odds behind this port lets the reward arithmetic be tested
// deterministically without the pricing engine.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrBetNotFound is returned when the market has no bet with that ID.
	ErrBetNotFound = errors.New("market: bet not found")

	// ErrConditionNotFound is returned when a bet references an unknown
	// condition.
	ErrConditionNotFound = errors.New("market: condition not found")
)

// Bet is the market's view of a single wager. Stake is in 18-decimal
// minimal units. Affiliate is empty when the bettor chose none.
type Bet struct {
	ID          int64           `json:"id"`
	Owner       string          `json:"owner"`
	Stake       decimal.Decimal `json:"stake"`
	ConditionID int64           `json:"condition_id"`
	OutcomeID   int64           `json:"outcome_id"`
	Affiliate   string          `json:"affiliate,omitempty"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// Condition is the market's view of the event a bet was placed on.
type Condition struct {
	ID               int64     `json:"id"`
	Resolved         bool      `json:"resolved"`
	WinningOutcomeID int64     `json:"winning_outcome_id"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// Market is the narrow read interface the engine consumes.
type Market interface {
	// GetBet returns the facts of a single bet.
	GetBet(ctx context.Context, betID int64) (*Bet, error)

	// GetCondition returns the condition a bet was placed on.
	GetCondition(ctx context.Context, conditionID int64) (*Condition, error)

	// GetOdds returns the decimal payout odds fixed at placement time.
	GetOdds(ctx context.Context, betID int64) (decimal.Decimal, error)
}
