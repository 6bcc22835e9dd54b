package services

import (
	"fmt"
	"sort"

	"lendledger/domain/entities"

	"github.com/shopspring/decimal"
)

// LeadingGapPolicy decides what happens to days before the first published sample
type LeadingGapPolicy string

const (
	// LeadingGapBackfill carries the earliest later sample backward over the gap
	LeadingGapBackfill LeadingGapPolicy = "backfill"
	// LeadingGapZero accrues nothing before the first sample and records an issue
	LeadingGapZero LeadingGapPolicy = "zero"
	// LeadingGapReject fails the run with ErrMissingRateCoverage
	LeadingGapReject LeadingGapPolicy = "reject"
)

// ParseLeadingGapPolicy validates a configured policy name
func ParseLeadingGapPolicy(s string) (LeadingGapPolicy, error) {
	switch p := LeadingGapPolicy(s); p {
	case LeadingGapBackfill, LeadingGapZero, LeadingGapReject:
		return p, nil
	case "":
		return LeadingGapBackfill, nil
	default:
		return "", fmt.Errorf("unknown leading gap policy: %s", s)
	}
}

// APRSelector picks the APR percentage a side accrues at from a sample
type APRSelector func(s entities.RateSample) decimal.Decimal

// BorrowAPR uses the published variable borrow rate as is
func BorrowAPR(s entities.RateSample) decimal.Decimal {
	return s.VariableBorrowRateAvg
}

// UtilizationAdjustedAPR derives a supply APR as borrowAPR * utilization * (1 - reserveFactor)
func UtilizationAdjustedAPR(reserveFactorBps int64) APRSelector {
	keep := decimal.NewFromInt(10_000 - reserveFactorBps).Div(decimal.NewFromInt(10_000))
	if keep.IsNegative() {
		keep = decimal.Zero
	}
	return func(s entities.RateSample) decimal.Decimal {
		return s.VariableBorrowRateAvg.Mul(s.UtilizationRateAvg).Mul(keep)
	}
}

// RateNormalizer turns sparse rate samples into a dense per-day series
type RateNormalizer struct {
	policy LeadingGapPolicy
}

// NewRateNormalizer creates a normalizer with the given leading gap policy
func NewRateNormalizer(policy LeadingGapPolicy) *RateNormalizer {
	if policy == "" {
		policy = LeadingGapBackfill
	}
	return &RateNormalizer{policy: policy}
}

// Policy returns the configured leading gap policy
func (n *RateNormalizer) Policy() LeadingGapPolicy {
	return n.policy
}

// Normalize builds exactly one DailyRate per calendar day in [from, to]. Missing days
// carry the most recent earlier sample forward. When several samples share a day the
// last one in input order wins.
func (n *RateNormalizer) Normalize(samples []entities.RateSample, from, to entities.Day, apr APRSelector) (*entities.RateSeries, []entities.Issue, error) {
	if apr == nil {
		apr = BorrowAPR
	}
	if to < from {
		return entities.NewRateSeries(from, to, map[entities.Day]entities.DailyRate{}), nil, nil
	}

	var issues []entities.Issue
	valid := make([]entities.RateSample, 0, len(samples))
	for _, s := range samples {
		if !s.Key().Valid() {
			issues = append(issues, entities.Issue{
				Kind:    entities.IssueInvalidRateSample,
				Message: fmt.Sprintf("rate sample with invalid date %04d-%02d-%02d skipped", s.Year, s.Month, s.Day),
			})
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return nil, issues, fmt.Errorf("%w: no samples for %s..%s", entities.ErrNoRateData, from, to)
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Key() < valid[j].Key() })
	first := valid[0]
	for _, s := range valid[1:] {
		if s.Key() != first.Key() {
			break
		}
		first = s
	}

	rates := make(map[entities.Day]entities.DailyRate, entities.DaysBetween(from, to)+1)
	var (
		idx       int
		lastKnown *entities.RateSample
		gapStart  entities.Day
		gapDays   int
	)
	for _, d := range entities.DayRange(from, to) {
		for idx < len(valid) && valid[idx].Key() <= d {
			lastKnown = &valid[idx]
			idx++
		}

		if lastKnown != nil {
			rates[d] = dailyRateFrom(d, *lastKnown, apr)
			continue
		}

		switch n.policy {
		case LeadingGapReject:
			return nil, issues, fmt.Errorf("%w: no sample at or before %s (first sample %s)",
				entities.ErrMissingRateCoverage, d, first.Key())
		case LeadingGapZero:
			if gapDays == 0 {
				gapStart = d
			}
			gapDays++
			rates[d] = entities.DailyRate{Day: d, APRPercent: decimal.Zero, DailyRate: decimal.Zero, SourceDay: d}
		default:
			rates[d] = dailyRateFrom(d, first, apr)
		}
	}

	if gapDays > 0 {
		issues = append(issues, entities.Issue{
			Kind:    entities.IssueZeroRateLeadingGap,
			Day:     gapStart,
			Message: fmt.Sprintf("%d days before first rate sample %s accrued at zero", gapDays, first.Key()),
		})
	}

	return entities.NewRateSeries(from, to, rates), issues, nil
}

func dailyRateFrom(d entities.Day, s entities.RateSample, apr APRSelector) entities.DailyRate {
	pct := apr(s)
	return entities.DailyRate{
		Day:        d,
		APRPercent: pct,
		DailyRate:  entities.DailyRateFromAPR(pct),
		SourceDay:  s.Key(),
	}
}
