package services

import (
	"fmt"
	"sort"
	"strings"

	"lendledger/domain/entities"

	log "github.com/sirupsen/logrus"
)

// MergedEvents holds the ordered per-side event streams for one token
type MergedEvents struct {
	Debt   []entities.TransactionEvent
	Supply []entities.TransactionEvent
	Issues []entities.Issue
}

// ForSide returns the stream for the given side
func (m MergedEvents) ForSide(side entities.Side) []entities.TransactionEvent {
	if side == entities.SideDebt {
		return m.Debt
	}
	return m.Supply
}

// EventMerger normalizes raw protocol records into signed per-side balance movements
type EventMerger struct{}

// NewEventMerger creates a new event merger
func NewEventMerger() *EventMerger {
	return &EventMerger{}
}

type pendingEvent struct {
	event entities.TransactionEvent
	id    string
}

// Merge maps every raw record for the token onto its side and orders each side by
// timestamp, then transaction hash, then record id. Records for other reserves,
// unparseable amounts and records after lastDay are dropped and reported as issues.
// A zero lastDay disables the upper bound.
func (m *EventMerger) Merge(token entities.Token, wallet string, c entities.TransactionCollections, lastDay entities.Day) MergedEvents {
	var (
		out    MergedEvents
		debt   []pendingEvent
		supply []pendingEvent
	)

	add := func(raw entities.RawTransaction, side entities.Side, dir entities.Direction, source entities.SourceType) {
		ev, issue := m.normalize(token, raw, side, dir, source, lastDay)
		if issue != nil {
			out.Issues = append(out.Issues, *issue)
			return
		}
		p := pendingEvent{event: ev, id: raw.ID}
		if side == entities.SideDebt {
			debt = append(debt, p)
		} else {
			supply = append(supply, p)
		}
	}

	for _, r := range c.Borrows {
		add(r, entities.SideDebt, entities.DirectionIncrease, entities.SourceTypeBorrow)
	}
	for _, r := range c.Repays {
		add(r, entities.SideDebt, entities.DirectionDecrease, entities.SourceTypeRepay)
	}
	for _, r := range c.Supplies {
		add(r, entities.SideSupply, entities.DirectionIncrease, entities.SourceTypeSupply)
	}
	for _, r := range c.Withdraws {
		add(r, entities.SideSupply, entities.DirectionDecrease, entities.SourceTypeWithdraw)
	}

	for _, t := range c.Transfers {
		raw := entities.RawTransaction{ID: t.ID, TxHash: t.TxHash, Amount: t.Amount, Timestamp: t.Timestamp, Reserve: t.Reserve}
		received := strings.EqualFold(t.To, wallet)
		sent := strings.EqualFold(t.From, wallet)
		switch {
		case received && !sent:
			add(raw, entities.SideSupply, entities.DirectionIncrease, entities.SourceTypeTransferIn)
		case sent && !received:
			add(raw, entities.SideSupply, entities.DirectionDecrease, entities.SourceTypeTransferOut)
		default:
			issue := entities.Issue{
				Kind:    entities.IssueUnrelatedTransfer,
				Side:    entities.SideSupply,
				Day:     entities.DayFromUnix(t.Timestamp),
				TxHash:  t.TxHash,
				Message: fmt.Sprintf("transfer %s does not move funds in or out of the wallet", t.ID),
			}
			logDropped(token.Symbol, issue)
			out.Issues = append(out.Issues, issue)
		}
	}

	out.Debt = orderEvents(debt)
	out.Supply = orderEvents(supply)
	return out
}

func (m *EventMerger) normalize(token entities.Token, raw entities.RawTransaction, side entities.Side, dir entities.Direction, source entities.SourceType, lastDay entities.Day) (entities.TransactionEvent, *entities.Issue) {
	day := entities.DayFromUnix(raw.Timestamp)
	drop := func(kind entities.IssueKind, msg string) (entities.TransactionEvent, *entities.Issue) {
		issue := entities.Issue{Kind: kind, Side: side, Day: day, TxHash: raw.TxHash, Message: msg}
		logDropped(token.Symbol, issue)
		return entities.TransactionEvent{}, &issue
	}

	if !token.MatchesReserve(raw.Reserve.ID) {
		return drop(entities.IssueUnrecognizedReserve,
			fmt.Sprintf("%s %s: %v", source, raw.ID, fmt.Errorf("%w: %s", entities.ErrUnrecognizedReserve, raw.Reserve.ID)))
	}

	amount, err := entities.ParseBaseUnits(raw.Amount, token.Decimals)
	if err == nil && amount.IsNegative() {
		err = fmt.Errorf("%w: negative %s amount %s", entities.ErrInvalidAmount, source, raw.Amount)
	}
	if err != nil {
		return drop(entities.IssueInvalidAmount, fmt.Sprintf("%s %s: %v", source, raw.ID, err))
	}

	if lastDay != 0 && day > lastDay {
		return drop(entities.IssueOutOfWindow, fmt.Sprintf("%s %s on %s is after %s", source, raw.ID, day, lastDay))
	}

	return entities.TransactionEvent{
		Day:        day,
		Timestamp:  raw.Timestamp,
		Side:       side,
		Direction:  dir,
		Amount:     amount,
		SourceType: source,
		TxHash:     raw.TxHash,
	}, nil
}

// PartitionByToken splits a wallet's records by the registered token their reserve
// belongs to. Records whose reserve no token recognizes are reported once each.
func PartitionByToken(registry *entities.TokenRegistry, c entities.TransactionCollections) (map[string]entities.TransactionCollections, []entities.Issue) {
	out := make(map[string]entities.TransactionCollections)
	var issues []entities.Issue

	resolve := func(reserveID string, side entities.Side, label, id, txHash string, ts int64) (string, bool) {
		token, err := registry.Resolve(reserveID)
		if err != nil {
			issue := entities.Issue{
				Kind:    entities.IssueUnrecognizedReserve,
				Side:    side,
				Day:     entities.DayFromUnix(ts),
				TxHash:  txHash,
				Message: fmt.Sprintf("%s %s: %v", label, id, err),
			}
			logDropped("", issue)
			issues = append(issues, issue)
			return "", false
		}
		return token.Symbol, true
	}

	actions := []struct {
		records []entities.RawTransaction
		side    entities.Side
		source  entities.SourceType
		slot    func(*entities.TransactionCollections) *[]entities.RawTransaction
	}{
		{c.Borrows, entities.SideDebt, entities.SourceTypeBorrow, func(t *entities.TransactionCollections) *[]entities.RawTransaction { return &t.Borrows }},
		{c.Repays, entities.SideDebt, entities.SourceTypeRepay, func(t *entities.TransactionCollections) *[]entities.RawTransaction { return &t.Repays }},
		{c.Supplies, entities.SideSupply, entities.SourceTypeSupply, func(t *entities.TransactionCollections) *[]entities.RawTransaction { return &t.Supplies }},
		{c.Withdraws, entities.SideSupply, entities.SourceTypeWithdraw, func(t *entities.TransactionCollections) *[]entities.RawTransaction { return &t.Withdraws }},
	}
	for _, a := range actions {
		for _, r := range a.records {
			symbol, ok := resolve(r.Reserve.ID, a.side, string(a.source), r.ID, r.TxHash, r.Timestamp)
			if !ok {
				continue
			}
			bucket := out[symbol]
			slot := a.slot(&bucket)
			*slot = append(*slot, r)
			out[symbol] = bucket
		}
	}

	for _, t := range c.Transfers {
		symbol, ok := resolve(t.Reserve.ID, entities.SideSupply, "transfer", t.ID, t.TxHash, t.Timestamp)
		if !ok {
			continue
		}
		bucket := out[symbol]
		bucket.Transfers = append(bucket.Transfers, t)
		out[symbol] = bucket
	}

	return out, issues
}

func orderEvents(pending []pendingEvent) []entities.TransactionEvent {
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.event.Timestamp != b.event.Timestamp {
			return a.event.Timestamp < b.event.Timestamp
		}
		if a.event.TxHash != b.event.TxHash {
			return a.event.TxHash < b.event.TxHash
		}
		return a.id < b.id
	})
	out := make([]entities.TransactionEvent, len(pending))
	for i, p := range pending {
		out[i] = p.event
	}
	return out
}

func logDropped(symbol string, issue entities.Issue) {
	fields := log.Fields{
		"kind":   issue.Kind,
		"side":   issue.Side,
		"day":    issue.Day,
		"txHash": issue.TxHash,
	}
	if symbol != "" {
		fields["token"] = symbol
	}
	log.WithFields(fields).Warn(issue.Message)
}
