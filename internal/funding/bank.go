// Package funding defines the value-transfer port used to fund farm periods
// and pay out claims. The engine treats it as an external collaborator:
// Pull succeeds transactionally or fails entirely, never partially.
package funding

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover a pull.
	ErrInsufficientFunds = errors.New("funding: insufficient funds")

	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("funding: amount must be positive")
)

// Bank moves value between external wallets and the engine's pool account.
// Amounts are 18-decimal minimal units.
type Bank interface {
	// Pull transfers amount from the given wallet into the pool.
	Pull(ctx context.Context, from string, amount decimal.Decimal) error

	// Push transfers amount from the pool to the given wallet.
	Push(ctx context.Context, to string, amount decimal.Decimal) error
}
