package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
	"lendledger/events"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RateLookbackDays is how many days of rate history before a token's first event
// are requested, so a first day without a sample can be carried from an earlier one
const RateLookbackDays = 7

// AccrualObserver receives reconciliation measurements
type AccrualObserver interface {
	ObserveResult(token string, result entities.AccrualResult)
	ObserveIssues(issues []entities.Issue)
	ObserveTokenFailure(token string)
	ObservePosition(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveResult(string, entities.AccrualResult) {}
func (noopObserver) ObserveIssues([]entities.Issue)               {}
func (noopObserver) ObserveTokenFailure(string)                   {}
func (noopObserver) ObservePosition(time.Duration)                {}

// positionService reconciles wallets token by token and records each run
type positionService struct {
	dataSource interfaces.DataSource
	uowFactory interfaces.UnitOfWorkFactory
	registry   *entities.TokenRegistry
	reconciler *Reconciler
	observer   AccrualObserver
}

// NewPositionService creates a new position service
func NewPositionService(
	dataSource interfaces.DataSource,
	uowFactory interfaces.UnitOfWorkFactory,
	registry *entities.TokenRegistry,
	cfg ReconcilerConfig,
	observer AccrualObserver,
) interfaces.PositionService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &positionService{
		dataSource: dataSource,
		uowFactory: uowFactory,
		registry:   registry,
		reconciler: NewReconciler(cfg),
		observer:   observer,
	}
}

// NormalizeAddress validates a hex wallet address and returns it lower-cased
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidAddress, address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// GetPosition reconciles every requested token up to and including today and
// records a run for each token with activity
func (s *positionService) GetPosition(ctx context.Context, address string, symbols []string, today entities.Day) (*entities.PositionReport, error) {
	position, err := s.reconcile(ctx, address, symbols, today)
	if err != nil {
		return nil, err
	}
	s.recordRuns(ctx, position.Address, today, position.Tokens)
	return position, nil
}

// GetTokenLedger reconciles a single token without recording a run
func (s *positionService) GetTokenLedger(ctx context.Context, address, symbol string, today entities.Day) (*entities.TokenReport, error) {
	position, err := s.reconcile(ctx, address, []string{symbol}, today)
	if err != nil {
		return nil, err
	}
	report := position.Tokens[0]
	return &report, nil
}

func (s *positionService) reconcile(ctx context.Context, address string, symbols []string, today entities.Day) (*entities.PositionReport, error) {
	start := time.Now()
	defer func() { s.observer.ObservePosition(time.Since(start)) }()

	wallet, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if !today.Valid() {
		return nil, fmt.Errorf("invalid window end %s", today)
	}
	tokens, err := s.resolveTokens(symbols)
	if err != nil {
		return nil, err
	}

	txs, err := s.dataSource.FetchTransactions(ctx, wallet, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for %s: %w", wallet, err)
	}
	byToken, unrecognized := PartitionByToken(s.registry, txs)
	s.observer.ObserveIssues(unrecognized)

	reports := make([]entities.TokenReport, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, token := range tokens {
		g.Go(func() error {
			reports[i] = s.reconcileToken(gctx, wallet, token, byToken[token.Symbol], today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &entities.PositionReport{
		Address: wallet,
		Today:   today,
		Tokens:  reports,
		Issues:  unrecognized,
	}, nil
}

// GetHistory returns recent persisted runs for an address
func (s *positionService) GetHistory(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error) {
	wallet, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	runs, err := uow.AccrualRunRepository().GetByAddress(ctx, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get accrual history: %w", err)
	}
	return runs, nil
}

func (s *positionService) resolveTokens(symbols []string) ([]entities.Token, error) {
	if len(symbols) == 0 {
		return s.registry.All(), nil
	}

	seen := make(map[string]bool, len(symbols))
	tokens := make([]entities.Token, 0, len(symbols))
	for _, symbol := range symbols {
		token, err := s.registry.BySymbol(symbol)
		if err != nil {
			return nil, err
		}
		if seen[token.Symbol] {
			continue
		}
		seen[token.Symbol] = true
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// reconcileToken never fails the position: errors are reported on the token
func (s *positionService) reconcileToken(ctx context.Context, wallet string, token entities.Token, txs entities.TransactionCollections, today entities.Day) entities.TokenReport {
	report := entities.TokenReport{Symbol: token.Symbol, Decimals: token.Decimals}
	fail := func(err error) entities.TokenReport {
		log.WithFields(log.Fields{
			"address": wallet,
			"token":   token.Symbol,
			"error":   err,
		}).Error("Token reconciliation failed")
		s.observer.ObserveTokenFailure(token.Symbol)
		report.Error = err.Error()
		return report
	}

	var samples []entities.RateSample
	if first, ok := earliestActivity(token, txs); ok && first <= today {
		from := entities.DayFromTime(first.Time().AddDate(0, 0, -RateLookbackDays))
		var err error
		samples, err = s.dataSource.FetchRateHistory(ctx, token.RateReserveID(), from)
		if err != nil {
			return fail(fmt.Errorf("failed to fetch %s rates: %w", token.Symbol, err))
		}
	}

	result, err := s.reconciler.Reconcile(token, wallet, txs, samples, today)
	if err != nil {
		return fail(err)
	}

	for _, side := range []entities.AccrualResult{result.Debt, result.Supply} {
		if len(side.Ledger) > 0 {
			s.observer.ObserveResult(token.Symbol, side)
		}
	}
	s.observer.ObserveIssues(result.Issues)

	report.Summary = &result.Summary
	report.Debt = result.Debt
	report.Supply = result.Supply
	report.Issues = result.Issues

	log.WithFields(log.Fields{
		"address":        wallet,
		"token":          token.Symbol,
		"today":          today,
		"debtBalance":    result.Summary.Debt.CurrentBalance.String(),
		"supplyBalance":  result.Summary.Supply.CurrentBalance.String(),
		"debtInterest":   result.Summary.Debt.TotalInterest.String(),
		"supplyInterest": result.Summary.Supply.TotalInterest.String(),
		"issues":         len(result.Issues),
	}).Info("Reconciled token")

	return report
}

// earliestActivity returns the first day any record of the token touches the wallet
func earliestActivity(token entities.Token, txs entities.TransactionCollections) (entities.Day, bool) {
	var (
		earliest int64
		found    bool
	)
	consider := func(reserveID string, ts int64) {
		if !token.MatchesReserve(reserveID) {
			return
		}
		if !found || ts < earliest {
			earliest, found = ts, true
		}
	}
	for _, list := range [][]entities.RawTransaction{txs.Borrows, txs.Repays, txs.Supplies, txs.Withdraws} {
		for _, r := range list {
			consider(r.Reserve.ID, r.Timestamp)
		}
	}
	for _, t := range txs.Transfers {
		consider(t.Reserve.ID, t.Timestamp)
	}
	if !found {
		return 0, false
	}
	return entities.DayFromUnix(earliest), true
}

// recordRuns persists one snapshot per reconciled token with activity and raises
// AccrualCompletedEvent after commit. Failures are logged; the report stands.
func (s *positionService) recordRuns(ctx context.Context, wallet string, today entities.Day, reports []entities.TokenReport) {
	var runs []*entities.AccrualRun
	var recorded []entities.TokenReport
	for _, r := range reports {
		if r.Failed() || r.Summary == nil || (r.Summary.Debt.Days == 0 && r.Summary.Supply.Days == 0) {
			continue
		}
		runs = append(runs, newAccrualRun(wallet, today, r))
		recorded = append(recorded, r)
	}
	if len(runs) == 0 {
		return
	}

	err := func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		for i, run := range runs {
			if err := uow.AccrualRunRepository().Create(ctx, run); err != nil {
				return err
			}
			uow.EventBus().Publish(events.AccrualCompletedEvent{
				RunID:      run.ID,
				Address:    wallet,
				Today:      today,
				Summary:    *recorded[i].Summary,
				IssueCount: len(recorded[i].Issues),
			})
		}
		return uow.Commit()
	}()
	if err != nil {
		log.WithFields(log.Fields{
			"address": wallet,
			"runs":    len(runs),
			"error":   err,
		}).Warn("Failed to record accrual runs")
	}
}

func newAccrualRun(wallet string, today entities.Day, r entities.TokenReport) *entities.AccrualRun {
	summary := r.Summary
	from := summary.Debt.FirstDay
	if from == 0 || (summary.Supply.FirstDay != 0 && summary.Supply.FirstDay < from) {
		from = summary.Supply.FirstDay
	}

	issueKinds := make(map[string]int)
	for _, issue := range r.Issues {
		issueKinds[string(issue.Kind)]++
	}

	return &entities.AccrualRun{
		Address:        wallet,
		TokenSymbol:    r.Symbol,
		FromDay:        from,
		ToDay:          today,
		DebtBalance:    summary.Debt.CurrentBalance.String(),
		SupplyBalance:  summary.Supply.CurrentBalance.String(),
		DebtInterest:   summary.Debt.TotalInterest.String(),
		SupplyInterest: summary.Supply.TotalInterest.String(),
		IssueCount:     len(r.Issues),
		ExecutionSummary: map[string]interface{}{
			"debt_days":           summary.Debt.Days,
			"supply_days":         summary.Supply.Days,
			"debt_flagged_days":   summary.Debt.FlaggedDays,
			"supply_flagged_days": summary.Supply.FlaggedDays,
			"net_interest":        summary.NetInterest.String(),
			"net_position":        summary.NetPosition.String(),
			"issue_kinds":         issueKinds,
		},
	}
}
