package funding

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryBank implements Bank with an in-memory balance sheet. Used for
// testing and development; production deployments point the engine at the
// real treasury service instead.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	pool     decimal.Decimal
}

// NewMemoryBank creates an empty bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]decimal.Decimal)}
}

// Mint credits a wallet out of thin air. Test/dev helper.
func (b *MemoryBank) Mint(wallet string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[wallet] = b.balances[wallet].Add(amount)
}

// Balance returns a wallet's current balance.
func (b *MemoryBank) Balance(wallet string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[wallet]
}

// PoolBalance returns the engine pool's current balance.
func (b *MemoryBank) PoolBalance() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool
}

func (b *MemoryBank) Pull(_ context.Context, from string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from].LessThan(amount) {
		return fmt.Errorf("%w: %s has %s, need %s",
			ErrInsufficientFunds, from, b.balances[from], amount)
	}
	b.balances[from] = b.balances[from].Sub(amount)
	b.pool = b.pool.Add(amount)
	return nil
}

func (b *MemoryBank) Push(_ context.Context, to string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool.LessThan(amount) {
		return fmt.Errorf("%w: pool has %s, need %s",
			ErrInsufficientFunds, b.pool, amount)
	}
	b.pool = b.pool.Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}
