package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lendledger/database"
	"lendledger/domain/entities"
	"lendledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const accrualRunColumns = `id, address, token_symbol, from_day, to_day, debt_balance, supply_balance,
	debt_interest, supply_interest, issue_count, execution_summary, created_at`

// AccrualRunRepository implements the AccrualRunRepository interface
type AccrualRunRepository struct {
	q queryable
}

// NewAccrualRunRepository creates a new accrual run repository
func NewAccrualRunRepository(db *database.DB) interfaces.AccrualRunRepository {
	return &AccrualRunRepository{q: db.Pool}
}

// newAccrualRunRepositoryWithTx creates a new accrual run repository with a transaction
func newAccrualRunRepositoryWithTx(tx queryable) interfaces.AccrualRunRepository {
	return &AccrualRunRepository{q: tx}
}

// Create records a new snapshot
func (r *AccrualRunRepository) Create(ctx context.Context, run *entities.AccrualRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO accrual_runs
		(address, token_symbol, from_day, to_day, debt_balance, supply_balance,
		 debt_interest, supply_interest, issue_count, execution_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.Address,
		run.TokenSymbol,
		int(run.FromDay),
		int(run.ToDay),
		run.DebtBalance,
		run.SupplyBalance,
		run.DebtInterest,
		run.SupplyInterest,
		run.IssueCount,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create accrual run for %s %s: %w", run.Address, run.TokenSymbol, err)
	}

	return nil
}

// GetLatest returns the newest snapshot for an address and token
func (r *AccrualRunRepository) GetLatest(ctx context.Context, address, tokenSymbol string) (*entities.AccrualRun, error) {
	query := `SELECT ` + accrualRunColumns + `
		FROM accrual_runs
		WHERE address = $1 AND token_symbol = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	run, err := scanAccrualRun(r.q.QueryRow(ctx, query, address, tokenSymbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest accrual run for %s %s: %w", address, tokenSymbol, err)
	}
	return run, nil
}

// GetByAddress returns recent snapshots for an address, newest first
func (r *AccrualRunRepository) GetByAddress(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error) {
	query := `SELECT ` + accrualRunColumns + `
		FROM accrual_runs
		WHERE address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual runs for %s: %w", address, err)
	}
	defer rows.Close()

	var runs []*entities.AccrualRun
	for rows.Next() {
		run, err := scanAccrualRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accrual run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accrual runs: %w", err)
	}
	return runs, nil
}

func scanAccrualRun(row pgx.Row) (*entities.AccrualRun, error) {
	var run entities.AccrualRun
	var fromDay, toDay int
	var summaryJSON []byte

	err := row.Scan(
		&run.ID,
		&run.Address,
		&run.TokenSymbol,
		&fromDay,
		&toDay,
		&run.DebtBalance,
		&run.SupplyBalance,
		&run.DebtInterest,
		&run.SupplyInterest,
		&run.IssueCount,
		&summaryJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.FromDay = entities.Day(fromDay)
	run.ToDay = entities.Day(toDay)

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}
	return &run, nil
}
