package entities

import "errors"

var (
	// ErrInvalidAmount is returned when a numeric string cannot be parsed into an Amount
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrPrecisionMismatch is raised when two amounts of different precision are combined
	ErrPrecisionMismatch = errors.New("amount precision mismatch")

	// ErrUnrecognizedReserve is returned when a reserve id does not map to a known token
	ErrUnrecognizedReserve = errors.New("unrecognized reserve")

	// ErrMissingRateCoverage signals a day without a rate inside a window that must be dense
	ErrMissingRateCoverage = errors.New("missing rate coverage")

	// ErrNoRateData is returned when a token has activity but no published rate samples at all
	ErrNoRateData = errors.New("no rate data")

	// ErrNegativeClosingBalance marks a ledger day that closed below zero
	ErrNegativeClosingBalance = errors.New("negative closing balance")

	// ErrInvalidAddress is returned for malformed wallet addresses
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrUnknownToken is returned when a token symbol is not in the registry
	ErrUnknownToken = errors.New("unknown token")
)
