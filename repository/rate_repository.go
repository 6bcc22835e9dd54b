package repository

import (
	"context"
	"fmt"

	"lendledger/database"
	"lendledger/domain/entities"
	"lendledger/domain/interfaces"

	"github.com/shopspring/decimal"
)

var rateSampleColumns = []string{"reserve_id", "day", "variable_borrow_rate", "utilization_rate"}

// RateRepository implements the RateRepository interface
type RateRepository struct {
	q queryable
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *database.DB) interfaces.RateRepository {
	return &RateRepository{q: db.Pool}
}

// newRateRepositoryWithTx creates a new rate repository with a transaction
func newRateRepositoryWithTx(tx queryable) interfaces.RateRepository {
	return &RateRepository{q: tx}
}

const rateUpsert = `(reserve_id, day) DO UPDATE SET
	variable_borrow_rate = EXCLUDED.variable_borrow_rate,
	utilization_rate = EXCLUDED.utilization_rate,
	cached_at = NOW()`

// CoveredRange returns the first and last cached sample days for a reserve, or zeros
func (r *RateRepository) CoveredRange(ctx context.Context, reserveID string) (entities.Day, entities.Day, error) {
	var first, last int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MIN(day), 0), COALESCE(MAX(day), 0)
		FROM rate_samples
		WHERE reserve_id = $1
	`, reserveID).Scan(&first, &last)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get cached rate range for %s: %w", reserveID, err)
	}
	return entities.Day(first), entities.Day(last), nil
}

// StoreSamples upserts samples; a cached day is replaced by the newer value.
// Within one batch the last sample for a day wins.
func (r *RateRepository) StoreSamples(ctx context.Context, reserveID string, samples []entities.RateSample) (int64, error) {
	latest := make(map[entities.Day]int, len(samples))
	for i, s := range samples {
		latest[s.Key()] = i
	}

	rows := make([][]any, 0, len(latest))
	for i, s := range samples {
		if latest[s.Key()] != i {
			continue
		}
		rows = append(rows, []any{reserveID, int(s.Key()), s.VariableBorrowRateAvg.String(), s.UtilizationRateAvg.String()})
	}

	inserted, err := bulkInsert(ctx, r.q, "rate_samples", rateSampleColumns, rows, rateUpsert)
	if err != nil {
		return 0, fmt.Errorf("failed to store %d rate samples for %s: %w", len(rows), reserveID, err)
	}
	return inserted, nil
}

// GetByReserve returns every cached sample for a reserve in day order
func (r *RateRepository) GetByReserve(ctx context.Context, reserveID string) ([]entities.RateSample, error) {
	rows, err := r.q.Query(ctx, `
		SELECT day, variable_borrow_rate, utilization_rate
		FROM rate_samples
		WHERE reserve_id = $1
		ORDER BY day
	`, reserveID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate samples for %s: %w", reserveID, err)
	}
	defer rows.Close()

	var out []entities.RateSample
	for rows.Next() {
		var day int
		var borrow, utilization string
		if err := rows.Scan(&day, &borrow, &utilization); err != nil {
			return nil, fmt.Errorf("failed to scan rate sample: %w", err)
		}
		borrowRate, err := decimal.NewFromString(borrow)
		if err != nil {
			return nil, fmt.Errorf("corrupt borrow rate %q on %d: %w", borrow, day, err)
		}
		utilRate, err := decimal.NewFromString(utilization)
		if err != nil {
			return nil, fmt.Errorf("corrupt utilization rate %q on %d: %w", utilization, day, err)
		}
		out = append(out, entities.RateSample{
			Year:                  day / 10000,
			Month:                 day / 100 % 100,
			Day:                   day % 100,
			VariableBorrowRateAvg: borrowRate,
			UtilizationRateAvg:    utilRate,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rate samples: %w", err)
	}
	return out, nil
}
