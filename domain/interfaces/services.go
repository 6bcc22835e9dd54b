package interfaces

import (
	"context"

	"lendledger/domain/entities"
)

// DataSource defines the interface for fetching a wallet's protocol history
type DataSource interface {
	// FetchTransactions returns every record for the address at or after since (unix seconds)
	FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error)

	// FetchRateHistory returns daily rate samples for a reserve, at least from the given day onward
	FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error)
}

// PositionService defines the interface for reconciling a wallet's lending position
type PositionService interface {
	// GetPosition reconciles every requested token up to and including today.
	// An empty symbol list means every registered token.
	GetPosition(ctx context.Context, address string, symbols []string, today entities.Day) (*entities.PositionReport, error)

	// GetTokenLedger reconciles a single token and returns its full result without
	// recording a run
	GetTokenLedger(ctx context.Context, address, symbol string, today entities.Day) (*entities.TokenReport, error)

	// GetHistory returns recent persisted snapshots for an address
	GetHistory(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error)
}

// Notifier defines the interface for announcing completed reconciliations
type Notifier interface {
	NotifyAccrual(ctx context.Context, address string, summary entities.TokenSummary, issueCount int) error
}
