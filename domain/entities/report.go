package entities

// TokenReport is the reconciliation of one token within a position report
type TokenReport struct {
	Symbol   string        `json:"symbol"`
	Decimals uint8         `json:"decimals"`
	Summary  *TokenSummary `json:"summary,omitempty"`
	Debt     AccrualResult `json:"debt"`
	Supply   AccrualResult `json:"supply"`
	Issues   []Issue       `json:"issues,omitempty"`
	// Error is set when the token could not be reconciled; other tokens are unaffected
	Error string `json:"error,omitempty"`
}

// Failed reports whether the token could not be reconciled
func (r TokenReport) Failed() bool {
	return r.Error != ""
}

// PositionReport is the reconciliation of one wallet across tokens
type PositionReport struct {
	Address string        `json:"address"`
	Today   Day           `json:"today"`
	Tokens  []TokenReport `json:"tokens"`
	// Issues holds records whose reserve belongs to no registered token
	Issues []Issue `json:"issues,omitempty"`
}

// Token returns the report for a symbol
func (p *PositionReport) Token(symbol string) (TokenReport, bool) {
	for _, t := range p.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return TokenReport{}, false
}
