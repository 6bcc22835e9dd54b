package services

import (
	"errors"
	"fmt"
	"sort"

	"lendledger/domain/entities"

	"github.com/shopspring/decimal"
)

// AccrualState is the lifecycle state of an Accumulator
type AccrualState int

const (
	StateUninitialized AccrualState = iota
	StateAccumulating
	StateClosed
)

func (s AccrualState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAccumulating:
		return "accumulating"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrAccumulatorClosed is returned when stepping an accumulator after Close
	ErrAccumulatorClosed = errors.New("accumulator closed")
	// ErrNonContiguousDay is returned when a step skips or repeats a calendar day
	ErrNonContiguousDay = errors.New("non-contiguous accrual day")
	// ErrForeignEvent is returned when an event belongs to another day or side
	ErrForeignEvent = errors.New("event does not belong to accrual step")
)

// Accumulator applies the daily accrual transition for one (token, side) pair.
// Each Step appends exactly one ledger row; rows are never edited afterwards.
type Accumulator struct {
	side       entities.Side
	decimals   uint8
	state      AccrualState
	day        entities.Day
	balance    entities.Amount
	cumulative entities.Amount
	ledger     []entities.LedgerRow
	issues     []entities.Issue
}

// NewAccumulator creates an accumulator in the Uninitialized state
func NewAccumulator(side entities.Side, decimals uint8) *Accumulator {
	return &Accumulator{
		side:       side,
		decimals:   decimals,
		state:      StateUninitialized,
		balance:    entities.ZeroAmount(decimals),
		cumulative: entities.ZeroAmount(decimals),
	}
}

// State returns the current lifecycle state
func (a *Accumulator) State() AccrualState {
	return a.state
}

// Balance returns the closing balance of the last processed day
func (a *Accumulator) Balance() entities.Amount {
	return a.balance
}

// Step processes day d: interest on the carried balance first, then the day's
// events in order. The first step may be any day; later steps must be consecutive.
func (a *Accumulator) Step(d entities.Day, rate entities.DailyRate, events []entities.TransactionEvent) (entities.LedgerRow, error) {
	switch a.state {
	case StateClosed:
		return entities.LedgerRow{}, ErrAccumulatorClosed
	case StateAccumulating:
		if want := a.day.Next(); d != want {
			return entities.LedgerRow{}, fmt.Errorf("%w: got %s, want %s", ErrNonContiguousDay, d, want)
		}
	}
	if rate.Day != d {
		return entities.LedgerRow{}, fmt.Errorf("%w: rate for %s supplied on %s", entities.ErrMissingRateCoverage, rate.Day, d)
	}
	for _, e := range events {
		if e.Day != d || e.Side != a.side || e.Amount.Decimals() != a.decimals {
			return entities.LedgerRow{}, fmt.Errorf("%w: %s %s on %s", ErrForeignEvent, e.Side, e.TxHash, e.Day)
		}
	}

	opening := a.balance
	interest := DailyInterest(opening, rate.DailyRate)
	a.cumulative = a.cumulative.Add(interest)

	closing := opening.Add(interest)
	applied := make([]entities.TransactionEvent, len(events))
	copy(applied, events)
	for _, e := range applied {
		closing = closing.Add(e.Delta())
	}

	row := entities.LedgerRow{
		Day:                 d,
		OpeningBalance:      opening,
		DailyRate:           rate.DailyRate,
		DailyInterest:       interest,
		CumulativeInterest:  a.cumulative,
		ClosingBalance:      closing,
		AppliedTransactions: applied,
		NegativeClosing:     closing.IsNegative(),
	}
	if row.NegativeClosing {
		a.issues = append(a.issues, entities.Issue{
			Kind:    entities.IssueNegativeClosingBalance,
			Side:    a.side,
			Day:     d,
			Message: fmt.Sprintf("%v: %s", entities.ErrNegativeClosingBalance, closing),
		})
	}

	a.ledger = append(a.ledger, row)
	a.balance = closing
	a.day = d
	a.state = StateAccumulating
	return row, nil
}

// Close finalizes the run and returns its result. Closing twice is an error.
func (a *Accumulator) Close() (entities.AccrualResult, error) {
	if a.state == StateClosed {
		return entities.AccrualResult{}, ErrAccumulatorClosed
	}
	a.state = StateClosed
	return entities.AccrualResult{
		Side:           a.side,
		TotalInterest:  a.cumulative,
		CurrentBalance: a.balance,
		Ledger:         a.ledger,
		Issues:         a.issues,
	}, nil
}

// DailyInterest returns floor(balance * dailyRate) in the token's smallest unit.
// The product is exact; only the final truncation discards the fraction. Balances
// at or below zero and non-positive rates accrue nothing.
func DailyInterest(balance entities.Amount, dailyRate decimal.Decimal) entities.Amount {
	if balance.Sign() <= 0 || dailyRate.Sign() <= 0 {
		return entities.ZeroAmount(balance.Decimals())
	}
	product := balance.Decimal().Mul(dailyRate)
	return entities.NewAmount(product.Floor().BigInt(), balance.Decimals())
}

// AccrualEngine drives an Accumulator across a closed calendar window
type AccrualEngine struct{}

// NewAccrualEngine creates a new accrual engine
func NewAccrualEngine() *AccrualEngine {
	return &AccrualEngine{}
}

// Run walks every day from the side's first event through today and returns the
// ledger. Same-day events apply by timestamp, then transaction hash. A side without events yields an empty ledger. A day missing from the
// rate series is an invariant violation and fails the run.
func (e *AccrualEngine) Run(side entities.Side, decimals uint8, events []entities.TransactionEvent, rates *entities.RateSeries, today entities.Day) (entities.AccrualResult, error) {
	acc := NewAccumulator(side, decimals)
	if len(events) == 0 {
		return acc.Close()
	}

	ordered := make([]entities.TransactionEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		if a.SourceType != b.SourceType {
			return a.SourceType < b.SourceType
		}
		return a.Amount.Cmp(b.Amount) < 0
	})

	first, last := ordered[0].Day, ordered[len(ordered)-1].Day
	if last > today {
		return entities.AccrualResult{}, fmt.Errorf("%s event on %s is after window end %s", side, last, today)
	}

	next := 0
	for _, d := range entities.DayRange(first, today) {
		rate, ok := rates.Get(d)
		if !ok {
			return entities.AccrualResult{}, fmt.Errorf("%w: %s side has no rate for %s", entities.ErrMissingRateCoverage, side, d)
		}
		start := next
		for next < len(ordered) && ordered[next].Day == d {
			next++
		}
		if _, err := acc.Step(d, rate, ordered[start:next]); err != nil {
			return entities.AccrualResult{}, fmt.Errorf("accrual step %s: %w", d, err)
		}
	}

	return acc.Close()
}
