package services

import (
	"fmt"

	"lendledger/domain/entities"
)

// SupplyRateMode selects which APR the supply side accrues at
type SupplyRateMode string

const (
	// SupplyRateBorrow accrues supply balances at the published borrow rate
	SupplyRateBorrow SupplyRateMode = "borrow"
	// SupplyRateUtilization scales the borrow rate by utilization and the reserve factor
	SupplyRateUtilization SupplyRateMode = "utilization"
)

// ParseSupplyRateMode validates a configured supply rate mode
func ParseSupplyRateMode(s string) (SupplyRateMode, error) {
	switch m := SupplyRateMode(s); m {
	case SupplyRateBorrow, SupplyRateUtilization:
		return m, nil
	case "":
		return SupplyRateBorrow, nil
	default:
		return "", fmt.Errorf("unknown supply rate mode: %s", s)
	}
}

// ReconcilerConfig holds the policies applied to every reconciliation
type ReconcilerConfig struct {
	LeadingGap       LeadingGapPolicy
	SupplyRateMode   SupplyRateMode
	ReserveFactorBps int64
}

// TokenReconciliation is the full output for one token
type TokenReconciliation struct {
	Token   entities.Token
	Debt    entities.AccrualResult
	Supply  entities.AccrualResult
	Summary entities.TokenSummary
	Issues  []entities.Issue
}

// Reconciler composes the normalizer, merger, engine and aggregator into one
// deterministic batch function over a closed window ending today.
type Reconciler struct {
	cfg        ReconcilerConfig
	normalizer *RateNormalizer
	merger     *EventMerger
	engine     *AccrualEngine
	aggregator *SummaryAggregator
}

// NewReconciler creates a reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		cfg:        cfg,
		normalizer: NewRateNormalizer(cfg.LeadingGap),
		merger:     NewEventMerger(),
		engine:     NewAccrualEngine(),
		aggregator: NewSummaryAggregator(),
	}
}

func (r *Reconciler) supplyAPR() APRSelector {
	if r.cfg.SupplyRateMode == SupplyRateUtilization {
		return UtilizationAdjustedAPR(r.cfg.ReserveFactorBps)
	}
	return BorrowAPR
}

// Reconcile runs both sides of one token. Only invariant violations and missing
// rate data are returned as errors; per-event problems are collected as issues.
func (r *Reconciler) Reconcile(token entities.Token, wallet string, txs entities.TransactionCollections, samples []entities.RateSample, today entities.Day) (*TokenReconciliation, error) {
	merged := r.merger.Merge(token, wallet, txs, today)
	out := &TokenReconciliation{Token: token, Issues: merged.Issues}

	results := make(map[entities.Side]entities.AccrualResult, len(entities.Sides))
	for _, side := range entities.Sides {
		events := merged.ForSide(side)
		if len(events) == 0 {
			results[side] = entities.AccrualResult{
				Side:           side,
				TotalInterest:  token.Zero(),
				CurrentBalance: token.Zero(),
			}
			continue
		}

		apr := BorrowAPR
		if side == entities.SideSupply {
			apr = r.supplyAPR()
		}
		series, rateIssues, err := r.normalizer.Normalize(samples, events[0].Day, today, apr)
		if err != nil {
			return nil, fmt.Errorf("%s %s rates: %w", token.Symbol, side, err)
		}
		for _, issue := range rateIssues {
			issue.Side = side
			out.Issues = append(out.Issues, issue)
		}

		result, err := r.engine.Run(side, token.Decimals, events, series, today)
		if err != nil {
			return nil, fmt.Errorf("%s %s accrual: %w", token.Symbol, side, err)
		}
		out.Issues = append(out.Issues, result.Issues...)
		results[side] = result
	}

	out.Debt = results[entities.SideDebt]
	out.Supply = results[entities.SideSupply]
	out.Summary = r.aggregator.Token(token, out.Debt, out.Supply)
	return out, nil
}
