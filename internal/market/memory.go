package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryMarket implements Market with in-memory maps. Used for testing and
// development when no real market engine is reachable.
type MemoryMarket struct {
	mu         sync.RWMutex
	bets       map[int64]Bet
	conditions map[int64]Condition
	odds       map[int64]decimal.Decimal
}

// NewMemoryMarket creates an empty in-memory market.
func NewMemoryMarket() *MemoryMarket {
	return &MemoryMarket{
		bets:       make(map[int64]Bet),
		conditions: make(map[int64]Condition),
		odds:       make(map[int64]decimal.Decimal),
	}
}

// PutBet records a bet with its placement-time odds.
func (m *MemoryMarket) PutBet(b Bet, odds decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets[b.ID] = b
	m.odds[b.ID] = odds
}

// PutCondition records or replaces a condition.
func (m *MemoryMarket) PutCondition(c Condition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions[c.ID] = c
}

// Resolve marks a condition resolved with the given winning outcome.
func (m *MemoryMarket) Resolve(conditionID, winningOutcomeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conditions[conditionID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrConditionNotFound, conditionID)
	}
	c.Resolved = true
	c.WinningOutcomeID = winningOutcomeID
	m.conditions[conditionID] = c
	return nil
}

func (m *MemoryMarket) GetBet(_ context.Context, betID int64) (*Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bets[betID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	copy := b
	return &copy, nil
}

func (m *MemoryMarket) GetCondition(_ context.Context, conditionID int64) (*Condition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conditions[conditionID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrConditionNotFound, conditionID)
	}
	copy := c
	return &copy, nil
}

func (m *MemoryMarket) GetOdds(_ context.Context, betID int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	odds, ok := m.odds[betID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrBetNotFound, betID)
	}
	return odds, nil
}
