package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Token describes a lending-market asset the engine can reconcile
type Token struct {
	Symbol   string
	Decimals uint8
	// Address is the underlying asset contract address, lower-cased
	Address string
	// ReserveIDs lists protocol reserve identifiers that always resolve to this token
	ReserveIDs []string
}

// MatchesReserve reports whether a protocol reserve id refers to this token.
// Reserve ids are the underlying address followed by the market address, so any
// id that starts with the token address belongs to it regardless of market version.
func (t Token) MatchesReserve(reserveID string) bool {
	id := strings.ToLower(strings.TrimSpace(reserveID))
	if id == "" {
		return false
	}
	for _, known := range t.ReserveIDs {
		if strings.ToLower(known) == id {
			return true
		}
	}
	return t.Address != "" && strings.HasPrefix(id, strings.ToLower(t.Address))
}

// Zero returns a zero amount at the token's precision
func (t Token) Zero() Amount {
	return ZeroAmount(t.Decimals)
}

// TokenRegistry resolves symbols and reserve ids to tokens
type TokenRegistry struct {
	tokens map[string]Token
}

// NewTokenRegistry builds a registry keyed by upper-cased symbol
func NewTokenRegistry(tokens ...Token) *TokenRegistry {
	r := &TokenRegistry{tokens: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		t.Symbol = strings.ToUpper(t.Symbol)
		t.Address = strings.ToLower(t.Address)
		r.tokens[t.Symbol] = t
	}
	return r
}

// DefaultTokens are the stablecoin markets tracked out of the box
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "USDC", Decimals: 6, Address: "0xddafbb505ad214d7b80b1f830fccc89b60fb7a83"},
		{Symbol: "WXDAI", Decimals: 18, Address: "0xe91d153e0b41518a2ce8dd3d7944fa863463a97d"},
	}
}

// BySymbol looks a token up by symbol, case-insensitively
func (r *TokenRegistry) BySymbol(symbol string) (Token, error) {
	t, ok := r.tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return t, nil
}

// Resolve returns the token a reserve id belongs to
func (r *TokenRegistry) Resolve(reserveID string) (Token, error) {
	for _, t := range r.All() {
		if t.MatchesReserve(reserveID) {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("%w: %s", ErrUnrecognizedReserve, reserveID)
}

// All returns every token ordered by symbol
func (r *TokenRegistry) All() []Token {
	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns every registered symbol in order
func (r *TokenRegistry) Symbols() []string {
	all := r.All()
	out := make([]string, len(all))
	for i, t := range all {
		out[i] = t.Symbol
	}
	return out
}

// RateReserveID is the reserve whose published rate history the token accrues at
func (t Token) RateReserveID() string {
	if len(t.ReserveIDs) > 0 {
		return strings.ToLower(t.ReserveIDs[0])
	}
	return t.Address
}
