package entities

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact token quantity held in the token's smallest unit together with
// the number of decimals that unit carries. Amounts of different precision never mix.
type Amount struct {
	value    *big.Int
	decimals uint8
}

// NewAmount wraps a base-unit integer, copying it
func NewAmount(v *big.Int, decimals uint8) Amount {
	if v == nil {
		return Amount{value: new(big.Int), decimals: decimals}
	}
	return Amount{value: new(big.Int).Set(v), decimals: decimals}
}

// NewAmountFromInt64 wraps a base-unit int64
func NewAmountFromInt64(v int64, decimals uint8) Amount {
	return Amount{value: big.NewInt(v), decimals: decimals}
}

// ZeroAmount returns a zero amount of the given precision
func ZeroAmount(decimals uint8) Amount {
	return Amount{value: new(big.Int), decimals: decimals}
}

// ParseBaseUnits parses an integer string expressed in the token's smallest unit,
// which is how protocol APIs publish amounts ("1000000000" is 1000 USDC).
func ParseBaseUnits(s string, decimals uint8) (Amount, error) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{value: v, decimals: decimals}, nil
}

// ParseTokenUnits parses a decimal string expressed in whole tokens ("1000.50").
// More fractional digits than the precision can hold is an error, not a rounding.
func ParseTokenUnits(s string, decimals uint8) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("%w: %q exceeds %d decimals", ErrInvalidAmount, s, decimals)
	}
	return Amount{value: scaled.BigInt(), decimals: decimals}, nil
}

func (a Amount) int() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}
	return a.value
}

// Decimals returns the precision of the amount
func (a Amount) Decimals() uint8 {
	return a.decimals
}

// BigInt returns a copy of the base-unit value
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.int())
}

// Decimal returns the base-unit value as an exact decimal
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.int(), 0)
}

// Sign returns -1, 0 or +1
func (a Amount) Sign() int {
	return a.int().Sign()
}

// IsZero reports whether the amount is zero
func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// IsNegative reports whether the amount is below zero
func (a Amount) IsNegative() bool {
	return a.Sign() < 0
}

func (a Amount) mustMatch(b Amount) {
	if a.decimals != b.decimals {
		panic(fmt.Errorf("%w: %d vs %d decimals", ErrPrecisionMismatch, a.decimals, b.decimals))
	}
}

// Add returns a+b. Both amounts must share a precision.
func (a Amount) Add(b Amount) Amount {
	a.mustMatch(b)
	return Amount{value: new(big.Int).Add(a.int(), b.int()), decimals: a.decimals}
}

// Sub returns a-b. The result may be negative; callers inspect the sign.
func (a Amount) Sub(b Amount) Amount {
	a.mustMatch(b)
	return Amount{value: new(big.Int).Sub(a.int(), b.int()), decimals: a.decimals}
}

// Neg returns -a
func (a Amount) Neg() Amount {
	return Amount{value: new(big.Int).Neg(a.int()), decimals: a.decimals}
}

// Cmp compares two amounts of equal precision
func (a Amount) Cmp(b Amount) int {
	a.mustMatch(b)
	return a.int().Cmp(b.int())
}

// Equal reports whether both precision and value match
func (a Amount) Equal(b Amount) bool {
	return a.decimals == b.decimals && a.int().Cmp(b.int()) == 0
}

// Rescale converts the amount to another precision. Scaling down truncates toward zero.
func (a Amount) Rescale(decimals uint8) Amount {
	v := new(big.Int).Set(a.int())
	switch {
	case decimals > a.decimals:
		v.Mul(v, pow10(decimals-a.decimals))
	case decimals < a.decimals:
		v.Quo(v, pow10(a.decimals-decimals))
	}
	return Amount{value: v, decimals: decimals}
}

// String returns the base-unit integer
func (a Amount) String() string {
	return a.int().String()
}

// ToDisplayString renders whole-token units with exactly displayDecimals fractional
// digits, truncating (never rounding) anything beyond.
func (a Amount) ToDisplayString(displayDecimals int) string {
	if displayDecimals < 0 {
		displayDecimals = 0
	}
	abs := new(big.Int).Abs(a.int())
	whole, frac := new(big.Int).QuoRem(abs, pow10(a.decimals), new(big.Int))

	fracDigits := ""
	if a.decimals > 0 {
		fracDigits = frac.String()
		fracDigits = strings.Repeat("0", int(a.decimals)-len(fracDigits)) + fracDigits
	}
	if len(fracDigits) > displayDecimals {
		fracDigits = fracDigits[:displayDecimals]
	} else {
		fracDigits += strings.Repeat("0", displayDecimals-len(fracDigits))
	}

	out := whole.String()
	if displayDecimals > 0 {
		out += "." + fracDigits
	}
	if a.IsNegative() && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}

// MarshalJSON encodes the base-unit integer as a JSON string
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

var pow10Cache = func() [78]*big.Int {
	var out [78]*big.Int
	ten := big.NewInt(10)
	out[0] = big.NewInt(1)
	for i := 1; i < len(out); i++ {
		out[i] = new(big.Int).Mul(out[i-1], ten)
	}
	return out
}()

func pow10(n uint8) *big.Int {
	if int(n) < len(pow10Cache) {
		return pow10Cache[n]
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
