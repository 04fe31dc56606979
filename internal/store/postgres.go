package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/farming-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateAffiliate(ctx context.Context, a *model.Affiliate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO affiliates (wallet, percent, registered_at)
		 VALUES ($1, $2, $3)`,
		a.Wallet, a.Percent, a.RegisteredAt,
	)
	return err
}

func (s *PostgresStore) GetAffiliate(ctx context.Context, wallet string) (*model.Affiliate, error) {
	var a model.Affiliate
	err := s.pool.QueryRow(ctx,
		`SELECT wallet, percent, registered_at FROM affiliates WHERE wallet = $1`,
		wallet).
		Scan(&a.Wallet, &a.Percent, &a.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get affiliate %s: %w", wallet, err)
	}
	return &a, nil
}

func (s *PostgresStore) SetAffiliatePercent(ctx context.Context, wallet string, percent int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE affiliates SET percent = $2 WHERE wallet = $1`,
		wallet, percent,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateFarmPeriod(ctx context.Context, p *model.FarmPeriod) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO farm_periods (start_time, duration_seconds, reward_amount, total_weighted_stake, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)
		 RETURNING farm_id`,
		p.StartTime, int64(p.Duration/time.Second),
		p.RewardAmount.String(), p.TotalWeightedStake.String(),
		p.CreatedAt,
	).Scan(&p.FarmID)
}

func (s *PostgresStore) GetFarmPeriod(ctx context.Context, farmID int64) (*model.FarmPeriod, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT farm_id, start_time, duration_seconds,
		        reward_amount::TEXT, total_weighted_stake::TEXT, created_at
		 FROM farm_periods WHERE farm_id = $1`, farmID)

	p, err := scanFarmPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get farm period %d: %w", farmID, err)
	}
	return p, nil
}

func (s *PostgresStore) ListFarmPeriods(ctx context.Context) ([]model.FarmPeriod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT farm_id, start_time, duration_seconds,
		        reward_amount::TEXT, total_weighted_stake::TEXT, created_at
		 FROM farm_periods ORDER BY start_time, farm_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []model.FarmPeriod
	for rows.Next() {
		p, err := scanFarmPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

func (s *PostgresStore) GetContribution(ctx context.Context, betID int64) (*model.BetContribution, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, bet_id, farm_id, bettor, affiliate,
		        weighted_stake::TEXT, bettor_share::TEXT, affiliate_share::TEXT,
		        registered_at
		 FROM bet_contributions WHERE bet_id = $1`, betID)

	c, err := scanContribution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contribution for bet %d: %w", betID, err)
	}
	return c, nil
}

// RecordContribution commits the contribution row, the wallet balance
// credits, and the period-total bump in a single transaction.
func (s *PostgresStore) RecordContribution(ctx context.Context, c *model.BetContribution) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO bet_contributions
		   (id, bet_id, farm_id, bettor, affiliate,
		    weighted_stake, bettor_share, affiliate_share, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9)`,
		c.ID, c.BetID, c.FarmID, c.Bettor, c.Affiliate,
		c.WeightedStake.String(), c.BettorShare.String(), c.AffiliateShare.String(),
		c.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert contribution for bet %d: %w", c.BetID, err)
	}

	if c.WeightedStake.IsPositive() {
		if err := creditBalance(ctx, tx, c.Bettor, c.FarmID, c.BettorShare); err != nil {
			return err
		}
		if c.Affiliate != "" && c.AffiliateShare.IsPositive() {
			if err := creditBalance(ctx, tx, c.Affiliate, c.FarmID, c.AffiliateShare); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx,
			`UPDATE farm_periods
			 SET total_weighted_stake = total_weighted_stake + $2::NUMERIC
			 WHERE farm_id = $1`,
			c.FarmID, c.WeightedStake.String(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

func creditBalance(ctx context.Context, tx pgx.Tx, wallet string, farmID int64, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO wallet_balances (wallet, farm_id, weighted_stake, claimed, claimed_amount)
		 VALUES ($1, $2, $3::NUMERIC, FALSE, 0)
		 ON CONFLICT (wallet, farm_id)
		 DO UPDATE SET weighted_stake = wallet_balances.weighted_stake + EXCLUDED.weighted_stake`,
		wallet, farmID, amount.String(),
	)
	return err
}

func (s *PostgresStore) ListContributionsByPeriod(ctx context.Context, farmID int64) ([]model.BetContribution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, bet_id, farm_id, bettor, affiliate,
		        weighted_stake::TEXT, bettor_share::TEXT, affiliate_share::TEXT,
		        registered_at
		 FROM bet_contributions WHERE farm_id = $1 ORDER BY bet_id`, farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []model.BetContribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, *c)
	}
	return contributions, rows.Err()
}

func (s *PostgresStore) GetWalletBalance(ctx context.Context, wallet string, farmID int64) (*model.WalletBalance, error) {
	var b model.WalletBalance
	var stakeS, claimedS string

	err := s.pool.QueryRow(ctx,
		`SELECT wallet, farm_id, weighted_stake::TEXT, claimed, claimed_amount::TEXT
		 FROM wallet_balances WHERE wallet = $1 AND farm_id = $2`,
		wallet, farmID).
		Scan(&b.Wallet, &b.FarmID, &stakeS, &b.Claimed, &claimedS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get balance %s/%d: %w", wallet, farmID, err)
	}

	b.WeightedStake, _ = decimal.NewFromString(stakeS)
	b.ClaimedAmount, _ = decimal.NewFromString(claimedS)
	return &b, nil
}

func (s *PostgresStore) SettleClaim(ctx context.Context, wallet string, farmID int64, amount decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wallet_balances
		 SET claimed = TRUE, claimed_amount = $3::NUMERIC
		 WHERE wallet = $1 AND farm_id = $2 AND claimed = FALSE`,
		wallet, farmID, amount.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Row scanning helpers ---

type pgxRow interface {
	Scan(dest ...interface{}) error
}

func scanFarmPeriod(row pgxRow) (*model.FarmPeriod, error) {
	var p model.FarmPeriod
	var durationSecs int64
	var rewardS, totalS string

	if err := row.Scan(&p.FarmID, &p.StartTime, &durationSecs,
		&rewardS, &totalS, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Duration = time.Duration(durationSecs) * time.Second
	p.RewardAmount, _ = decimal.NewFromString(rewardS)
	p.TotalWeightedStake, _ = decimal.NewFromString(totalS)
	return &p, nil
}

func scanContribution(row pgxRow) (*model.BetContribution, error) {
	var c model.BetContribution
	var weightedS, bettorS, affiliateS string

	if err := row.Scan(&c.ID, &c.BetID, &c.FarmID, &c.Bettor, &c.Affiliate,
		&weightedS, &bettorS, &affiliateS, &c.RegisteredAt); err != nil {
		return nil, err
	}

	c.WeightedStake, _ = decimal.NewFromString(weightedS)
	c.BettorShare, _ = decimal.NewFromString(bettorS)
	c.AffiliateShare, _ = decimal.NewFromString(affiliateS)
	return &c, nil
}
