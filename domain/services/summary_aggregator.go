package services

import (
	"lendledger/domain/entities"
)

// SummaryAggregator reduces accrual results into totals. It has no side effects.
type SummaryAggregator struct{}

// NewSummaryAggregator creates a new summary aggregator
func NewSummaryAggregator() *SummaryAggregator {
	return &SummaryAggregator{}
}

// Side folds one side's ledger
func (g *SummaryAggregator) Side(result entities.AccrualResult, decimals uint8) entities.SideSummary {
	summary := entities.SideSummary{
		Side:           result.Side,
		TotalIncreases: entities.ZeroAmount(decimals),
		TotalDecreases: entities.ZeroAmount(decimals),
		CurrentBalance: entities.ZeroAmount(decimals),
		TotalInterest:  entities.ZeroAmount(decimals),
		Days:           len(result.Ledger),
	}
	if len(result.Ledger) == 0 {
		return summary
	}

	summary.FirstDay = result.Ledger[0].Day
	for _, row := range result.Ledger {
		summary.TotalIncreases = summary.TotalIncreases.Add(row.Increases())
		summary.TotalDecreases = summary.TotalDecreases.Add(row.Decreases())
		if row.NegativeClosing {
			summary.FlaggedDays++
		}
	}
	summary.CurrentBalance = result.CurrentBalance
	summary.TotalInterest = result.TotalInterest
	return summary
}

// Token combines the debt and supply results of one token
func (g *SummaryAggregator) Token(token entities.Token, debt, supply entities.AccrualResult) entities.TokenSummary {
	d := g.Side(debt, token.Decimals)
	s := g.Side(supply, token.Decimals)
	return entities.TokenSummary{
		Symbol:      token.Symbol,
		Decimals:    token.Decimals,
		Debt:        d,
		Supply:      s,
		NetInterest: d.TotalInterest.Sub(s.TotalInterest),
		NetPosition: s.CurrentBalance.Sub(d.CurrentBalance),
	}
}
