package entities

import (
	"github.com/shopspring/decimal"
)

// IssueKind classifies a recoverable data problem found while reconciling
type IssueKind string

const (
	IssueInvalidAmount          IssueKind = "invalid_amount"
	IssueUnrecognizedReserve    IssueKind = "unrecognized_reserve"
	IssueOutOfWindow            IssueKind = "out_of_window"
	IssueNegativeClosingBalance IssueKind = "negative_closing_balance"
	IssueZeroRateLeadingGap     IssueKind = "zero_rate_leading_gap"
	IssueInvalidRateSample      IssueKind = "invalid_rate_sample"
	IssueUnrelatedTransfer      IssueKind = "unrelated_transfer"
)

// Issue is a non-fatal problem annotated on a result
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Side    Side      `json:"side,omitempty"`
	Day     Day       `json:"day,omitempty"`
	TxHash  string    `json:"txHash,omitempty"`
	Message string    `json:"message"`
}

// LedgerRow is one calendar day's accrual record for one side of one token
type LedgerRow struct {
	Day                 Day                `json:"day"`
	OpeningBalance      Amount             `json:"openingBalance"`
	DailyRate           decimal.Decimal    `json:"dailyRate"`
	DailyInterest       Amount             `json:"dailyInterest"`
	CumulativeInterest  Amount             `json:"cumulativeInterest"`
	ClosingBalance      Amount             `json:"closingBalance"`
	AppliedTransactions []TransactionEvent `json:"appliedTransactions"`
	// NegativeClosing flags a day whose closing balance fell below zero
	NegativeClosing bool `json:"negativeClosing,omitempty"`
}

// Increases sums the increase events applied on the day
func (r LedgerRow) Increases() Amount {
	total := ZeroAmount(r.ClosingBalance.Decimals())
	for _, e := range r.AppliedTransactions {
		if e.Direction == DirectionIncrease {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Decreases sums the decrease events applied on the day
func (r LedgerRow) Decreases() Amount {
	total := ZeroAmount(r.ClosingBalance.Decimals())
	for _, e := range r.AppliedTransactions {
		if e.Direction == DirectionDecrease {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// AccrualResult is the complete audit trail of one (token, side) run
type AccrualResult struct {
	Side           Side        `json:"side"`
	TotalInterest  Amount      `json:"totalInterest"`
	CurrentBalance Amount      `json:"currentBalance"`
	Ledger         []LedgerRow `json:"ledger"`
	Issues         []Issue     `json:"issues,omitempty"`
}

// FlaggedDays counts rows that closed negative
func (r AccrualResult) FlaggedDays() int {
	n := 0
	for _, row := range r.Ledger {
		if row.NegativeClosing {
			n++
		}
	}
	return n
}
