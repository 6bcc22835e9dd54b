package utils

import (
	"testing"

	"lendledger/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestFormatThousands(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "zero", value: "0", expected: "0"},
		{name: "three digits", value: "999", expected: "999"},
		{name: "four digits", value: "1000", expected: "1,000"},
		{name: "seven digits", value: "1234567", expected: "1,234,567"},
		{name: "negative", value: "-1234567", expected: "-1,234,567"},
		{name: "negative short", value: "-12", expected: "-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatThousands(tt.value))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   entities.Amount
		expected string
	}{
		{
			name:     "usdc balance",
			amount:   entities.NewAmountFromInt64(1001233548, 6),
			expected: "1,001.233548",
		},
		{
			name:     "wxdai truncated",
			amount:   entities.NewAmountFromInt64(1234567891234567891, 18),
			expected: "1.234567",
		},
		{
			name:     "negative",
			amount:   entities.NewAmountFromInt64(-2500000000, 6),
			expected: "-2,500.000000",
		},
		{
			name:     "zero",
			amount:   entities.ZeroAmount(6),
			expected: "0.000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAmount(tt.amount))
		})
	}
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1111…1111", ShortAddress("0x1111111111111111111111111111111111111111"))
	assert.Equal(t, "0xabc", ShortAddress("0xabc"))
}
