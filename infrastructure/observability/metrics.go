package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"lendledger/domain/entities"
	"lendledger/events"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the reconciliation collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	accrualRuns      *prometheus.CounterVec
	droppedEvents    *prometheus.CounterVec
	flaggedDays      *prometheus.CounterVec
	tokenFailures    *prometheus.CounterVec
	upstreamRecords  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	positionDuration prometheus.Histogram
}

var (
	defaultOnce sync.Once
	defaultReg  *Metrics
)

// Default returns the process-wide metrics registered with the default registerer
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultReg = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultReg
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		accrualRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "accrual_runs_total",
			Help:      "Completed accrual runs segmented by token and side.",
		}, []string{LabelToken, LabelSide}),
		droppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_events_total",
			Help:      "Raw records excluded from accrual segmented by issue kind.",
		}, []string{LabelReason}),
		flaggedDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "flagged_days_total",
			Help:      "Ledger days that closed with a negative balance.",
		}, []string{LabelToken, LabelSide}),
		tokenFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "token_failures_total",
			Help:      "Token reconciliations that ended in an error.",
		}, []string{LabelToken}),
		upstreamRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_records_total",
			Help:      "Records fetched from upstream sources and added to the cache.",
		}, []string{LabelKind}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP API requests segmented by route and status code.",
		}, []string{LabelRoute, LabelStatus}),
		positionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "position_duration_seconds",
			Help:      "Wall time spent reconciling a full position.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.accrualRuns,
			m.droppedEvents,
			m.flaggedDays,
			m.tokenFailures,
			m.upstreamRecords,
			m.httpRequests,
			m.positionDuration,
		)
	}
	return m
}

// ObserveResult records one finished side of a token
func (m *Metrics) ObserveResult(token string, result entities.AccrualResult) {
	if m == nil {
		return
	}
	side := string(result.Side)
	m.accrualRuns.WithLabelValues(token, side).Inc()
	if n := result.FlaggedDays(); n > 0 {
		m.flaggedDays.WithLabelValues(token, side).Add(float64(n))
	}
}

// ObserveIssues counts issues that dropped an input record
func (m *Metrics) ObserveIssues(issues []entities.Issue) {
	if m == nil {
		return
	}
	for _, issue := range issues {
		switch issue.Kind {
		case entities.IssueNegativeClosingBalance, entities.IssueZeroRateLeadingGap:
			continue
		}
		m.droppedEvents.WithLabelValues(string(issue.Kind)).Inc()
	}
}

// ObserveTokenFailure counts a token that could not be reconciled
func (m *Metrics) ObserveTokenFailure(token string) {
	if m == nil {
		return
	}
	m.tokenFailures.WithLabelValues(token).Inc()
}

// ObserveUpstream counts freshly cached upstream records
func (m *Metrics) ObserveUpstream(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.upstreamRecords.WithLabelValues(kind).Add(float64(n))
}

// ObserveRequest records one HTTP API request
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObservePosition records the duration of a position reconciliation
func (m *Metrics) ObservePosition(d time.Duration) {
	if m == nil {
		return
	}
	m.positionDuration.Observe(d.Seconds())
}

// HandleRecordsCached is an event handler counting records newly written to the cache
func (m *Metrics) HandleRecordsCached(_ context.Context, event events.Event) {
	e, ok := event.(events.RecordsCachedEvent)
	if !ok {
		return
	}
	m.ObserveUpstream("transactions", e.Transactions)
	m.ObserveUpstream("rate_samples", e.RateSamples)
}
