package api

import (
	"time"

	"lendledger/domain/entities"
)

// DisplayDecimals is the number of fractional digits in display strings
const DisplayDecimals = 6

// AmountResponse carries an exact base-unit integer and a truncated display value
type AmountResponse struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

func newAmount(a entities.Amount) AmountResponse {
	return AmountResponse{Raw: a.String(), Display: a.ToDisplayString(DisplayDecimals)}
}

// SideResponse summarizes one side of a token
type SideResponse struct {
	CurrentBalance AmountResponse `json:"currentBalance"`
	TotalInterest  AmountResponse `json:"totalInterest"`
	TotalIncreases AmountResponse `json:"totalIncreases"`
	TotalDecreases AmountResponse `json:"totalDecreases"`
	Days           int            `json:"days"`
	FirstDay       string         `json:"firstDay,omitempty"`
	FlaggedDays    int            `json:"flaggedDays"`
}

func newSide(s entities.SideSummary) SideResponse {
	out := SideResponse{
		CurrentBalance: newAmount(s.CurrentBalance),
		TotalInterest:  newAmount(s.TotalInterest),
		TotalIncreases: newAmount(s.TotalIncreases),
		TotalDecreases: newAmount(s.TotalDecreases),
		Days:           s.Days,
		FlaggedDays:    s.FlaggedDays,
	}
	if s.FirstDay != 0 {
		out.FirstDay = s.FirstDay.ISO()
	}
	return out
}

// TokenResponse is one token of a position
type TokenResponse struct {
	Symbol      string           `json:"symbol"`
	Decimals    uint8            `json:"decimals"`
	Error       string           `json:"error,omitempty"`
	Debt        *SideResponse    `json:"debt,omitempty"`
	Supply      *SideResponse    `json:"supply,omitempty"`
	NetInterest *AmountResponse  `json:"netInterest,omitempty"`
	NetPosition *AmountResponse  `json:"netPosition,omitempty"`
	Issues      []entities.Issue `json:"issues"`
}

func newToken(r entities.TokenReport) TokenResponse {
	out := TokenResponse{
		Symbol:   r.Symbol,
		Decimals: r.Decimals,
		Error:    r.Error,
		Issues:   r.Issues,
	}
	if out.Issues == nil {
		out.Issues = []entities.Issue{}
	}
	if r.Summary != nil {
		debt := newSide(r.Summary.Debt)
		supply := newSide(r.Summary.Supply)
		netInterest := newAmount(r.Summary.NetInterest)
		netPosition := newAmount(r.Summary.NetPosition)
		out.Debt, out.Supply = &debt, &supply
		out.NetInterest, out.NetPosition = &netInterest, &netPosition
	}
	return out
}

// PositionResponse is the body of the position endpoint
type PositionResponse struct {
	Address string          `json:"address"`
	Today   string          `json:"today"`
	Tokens  []TokenResponse `json:"tokens"`
	// Issues lists records whose reserve no registered token recognizes
	Issues []entities.Issue `json:"issues"`
}

func newPosition(p *entities.PositionReport) PositionResponse {
	out := PositionResponse{
		Address: p.Address,
		Today:   p.Today.ISO(),
		Tokens:  make([]TokenResponse, 0, len(p.Tokens)),
		Issues:  p.Issues,
	}
	if out.Issues == nil {
		out.Issues = []entities.Issue{}
	}
	for _, t := range p.Tokens {
		out.Tokens = append(out.Tokens, newToken(t))
	}
	return out
}

// EventResponse is one movement applied on a ledger day
type EventResponse struct {
	Timestamp  int64          `json:"timestamp"`
	Direction  string         `json:"direction"`
	SourceType string         `json:"sourceType"`
	Amount     AmountResponse `json:"amount"`
	TxHash     string         `json:"txHash"`
}

// LedgerRowResponse is one calendar day of a ledger
type LedgerRowResponse struct {
	Day                string          `json:"day"`
	OpeningBalance     AmountResponse  `json:"openingBalance"`
	DailyRate          string          `json:"dailyRate"`
	DailyInterest      AmountResponse  `json:"dailyInterest"`
	CumulativeInterest AmountResponse  `json:"cumulativeInterest"`
	ClosingBalance     AmountResponse  `json:"closingBalance"`
	Transactions       []EventResponse `json:"transactions"`
	NegativeClosing    bool            `json:"negativeClosing"`
}

// LedgerResponse is the body of the ledger endpoint
type LedgerResponse struct {
	Address        string              `json:"address"`
	Token          string              `json:"token"`
	Side           string              `json:"side"`
	Today          string              `json:"today"`
	Error          string              `json:"error,omitempty"`
	CurrentBalance AmountResponse      `json:"currentBalance"`
	TotalInterest  AmountResponse      `json:"totalInterest"`
	Rows           []LedgerRowResponse `json:"rows"`
	Issues         []entities.Issue    `json:"issues"`
}

func newLedger(address string, today entities.Day, r *entities.TokenReport, side entities.Side) LedgerResponse {
	result := r.Debt
	if side == entities.SideSupply {
		result = r.Supply
	}

	out := LedgerResponse{
		Address: address,
		Token:   r.Symbol,
		Side:    string(side),
		Today:   today.ISO(),
		Error:   r.Error,
		Rows:    make([]LedgerRowResponse, 0, len(result.Ledger)),
		Issues:  []entities.Issue{},
	}
	zero := entities.ZeroAmount(r.Decimals)
	out.CurrentBalance, out.TotalInterest = newAmount(zero), newAmount(zero)
	if r.Failed() {
		return out
	}
	out.CurrentBalance = newAmount(result.CurrentBalance)
	out.TotalInterest = newAmount(result.TotalInterest)

	for _, row := range result.Ledger {
		txs := make([]EventResponse, 0, len(row.AppliedTransactions))
		for _, e := range row.AppliedTransactions {
			txs = append(txs, EventResponse{
				Timestamp:  e.Timestamp,
				Direction:  string(e.Direction),
				SourceType: string(e.SourceType),
				Amount:     newAmount(e.Amount),
				TxHash:     e.TxHash,
			})
		}
		out.Rows = append(out.Rows, LedgerRowResponse{
			Day:                row.Day.ISO(),
			OpeningBalance:     newAmount(row.OpeningBalance),
			DailyRate:          row.DailyRate.String(),
			DailyInterest:      newAmount(row.DailyInterest),
			CumulativeInterest: newAmount(row.CumulativeInterest),
			ClosingBalance:     newAmount(row.ClosingBalance),
			Transactions:       txs,
			NegativeClosing:    row.NegativeClosing,
		})
	}
	for _, issue := range r.Issues {
		if issue.Side == "" || issue.Side == side {
			out.Issues = append(out.Issues, issue)
		}
	}
	return out
}

// RunResponse is one persisted accrual run
type RunResponse struct {
	ID             int64                  `json:"id"`
	Token          string                 `json:"token"`
	FromDay        string                 `json:"fromDay"`
	ToDay          string                 `json:"toDay"`
	DebtBalance    string                 `json:"debtBalance"`
	SupplyBalance  string                 `json:"supplyBalance"`
	DebtInterest   string                 `json:"debtInterest"`
	SupplyInterest string                 `json:"supplyInterest"`
	IssueCount     int                    `json:"issueCount"`
	Summary        map[string]interface{} `json:"summary"`
	CreatedAt      time.Time              `json:"createdAt"`
}

func newRun(r *entities.AccrualRun) RunResponse {
	return RunResponse{
		ID:             r.ID,
		Token:          r.TokenSymbol,
		FromDay:        r.FromDay.ISO(),
		ToDay:          r.ToDay.ISO(),
		DebtBalance:    r.DebtBalance,
		SupplyBalance:  r.SupplyBalance,
		DebtInterest:   r.DebtInterest,
		SupplyInterest: r.SupplyInterest,
		IssueCount:     r.IssueCount,
		Summary:        r.ExecutionSummary,
		CreatedAt:      r.CreatedAt,
	}
}
