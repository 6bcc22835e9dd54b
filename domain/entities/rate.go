package entities

import (
	"github.com/shopspring/decimal"
)

// RateScale is the number of fractional digits kept for daily rates. It leaves more
// than 18 guard digits past the finest token precision (18 decimals).
const RateScale = 27

// DaysPerYear converts a published APR into a simple daily rate
const DaysPerYear = 365

// RateSample is one published daily average for a reserve. Rates are percentages
// for the borrow APR and a 0..1 ratio for utilization, as the rate feed reports them.
type RateSample struct {
	Year                  int             `json:"year"`
	Month                 int             `json:"month"`
	Day                   int             `json:"day"`
	VariableBorrowRateAvg decimal.Decimal `json:"variableBorrowRate_avg"`
	UtilizationRateAvg    decimal.Decimal `json:"utilizationRate_avg"`
}

// Key returns the calendar day the sample describes
func (s RateSample) Key() Day {
	return Day(s.Year*10000 + s.Month*100 + s.Day)
}

// DailyRate is the rate applied to an opening balance for one calendar day
type DailyRate struct {
	Day        Day             `json:"day"`
	APRPercent decimal.Decimal `json:"aprPercent"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	// SourceDay is the sample day the rate was taken from; differs from Day when carried
	SourceDay Day `json:"sourceDay"`
}

// Carried reports whether the rate was filled from another day's sample
func (r DailyRate) Carried() bool {
	return r.SourceDay != r.Day
}

// DailyRateFromAPR converts an APR percentage into aprPercent / 100 / 365, kept
// exact to RateScale fractional digits.
func DailyRateFromAPR(aprPercent decimal.Decimal) decimal.Decimal {
	return aprPercent.DivRound(decimal.NewFromInt(100*DaysPerYear), RateScale)
}

// RateSeries is a dense day-indexed rate mapping
type RateSeries struct {
	From  Day
	To    Day
	rates map[Day]DailyRate
}

// NewRateSeries wraps a prepared mapping
func NewRateSeries(from, to Day, rates map[Day]DailyRate) *RateSeries {
	return &RateSeries{From: from, To: to, rates: rates}
}

// Get returns the rate for a day
func (s *RateSeries) Get(d Day) (DailyRate, bool) {
	if s == nil {
		return DailyRate{}, false
	}
	r, ok := s.rates[d]
	return r, ok
}

// Len returns the number of days covered
func (s *RateSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rates)
}
