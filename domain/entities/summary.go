package entities

// SideSummary folds one side's ledger into totals
type SideSummary struct {
	Side           Side   `json:"side"`
	TotalIncreases Amount `json:"totalIncreases"`
	TotalDecreases Amount `json:"totalDecreases"`
	CurrentBalance Amount `json:"currentBalance"`
	TotalInterest  Amount `json:"totalInterest"`
	Days           int    `json:"days"`
	FirstDay       Day    `json:"firstDay,omitempty"`
	FlaggedDays    int    `json:"flaggedDays"`
}

// TokenSummary combines both sides of one token
type TokenSummary struct {
	Symbol   string      `json:"symbol"`
	Decimals uint8       `json:"decimals"`
	Debt     SideSummary `json:"debt"`
	Supply   SideSummary `json:"supply"`
	// NetInterest is debt interest minus supply interest: positive means the
	// position paid more than it earned
	NetInterest Amount `json:"netInterest"`
	// NetPosition is supply balance minus debt balance
	NetPosition Amount `json:"netPosition"`
}
