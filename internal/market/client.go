package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client is an HTTP implementation of Market backed by the market engine's
// JSON API. Amounts arrive as NUMERIC-as-string and are parsed into decimal.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a market client for the given base URL, e.g.
// "http://market-engine:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type betPayload struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	Stake       string `json:"stake"`
	ConditionID int64  `json:"condition_id"`
	OutcomeID   int64  `json:"outcome_id"`
	Affiliate   string `json:"affiliate"`
	PlacedAt    int64  `json:"placed_at"` // unix seconds
}

type conditionPayload struct {
	ID               int64 `json:"id"`
	Resolved         bool  `json:"resolved"`
	WinningOutcomeID int64 `json:"winning_outcome_id"`
	ResolvedAt       int64 `json:"resolved_at"` // unix seconds
}

type oddsPayload struct {
	Odds string `json:"odds"`
}

func (c *Client) GetBet(ctx context.Context, betID int64) (*Bet, error) {
	var p betPayload
	if err := c.get(ctx, fmt.Sprintf("/api/v1/bets/%d", betID), &p); err != nil {
		return nil, err
	}

	stake, err := decimal.NewFromString(p.Stake)
	if err != nil {
		return nil, fmt.Errorf("market: bad stake for bet %d: %w", betID, err)
	}

	return &Bet{
		ID:          p.ID,
		Owner:       p.Owner,
		Stake:       stake,
		ConditionID: p.ConditionID,
		OutcomeID:   p.OutcomeID,
		Affiliate:   p.Affiliate,
		PlacedAt:    time.Unix(p.PlacedAt, 0).UTC(),
	}, nil
}

func (c *Client) GetCondition(ctx context.Context, conditionID int64) (*Condition, error) {
	var p conditionPayload
	if err := c.get(ctx, fmt.Sprintf("/api/v1/conditions/%d", conditionID), &p); err != nil {
		return nil, err
	}

	return &Condition{
		ID:               p.ID,
		Resolved:         p.Resolved,
		WinningOutcomeID: p.WinningOutcomeID,
		ResolvedAt:       time.Unix(p.ResolvedAt, 0).UTC(),
	}, nil
}

func (c *Client) GetOdds(ctx context.Context, betID int64) (decimal.Decimal, error) {
	var p oddsPayload
	if err := c.get(ctx, fmt.Sprintf("/api/v1/bets/%d/odds", betID), &p); err != nil {
		return decimal.Zero, err
	}

	odds, err := decimal.NewFromString(p.Odds)
	if err != nil {
		return decimal.Zero, fmt.Errorf("market: bad odds for bet %d: %w", betID, err)
	}
	return odds, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("market: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return ErrBetNotFound
	default:
		return fmt.Errorf("market: GET %s: unexpected status %d", path, resp.StatusCode)
	}
}
