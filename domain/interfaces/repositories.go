package interfaces

import (
	"context"

	"lendledger/domain/entities"
	"lendledger/events"
)

// TransactionRepository defines the interface for cached protocol records
type TransactionRepository interface {
	// LatestTimestamp returns the newest cached record timestamp for an address, or 0
	LatestTimestamp(ctx context.Context, address string) (int64, error)

	// StoreTransactions bulk-inserts records, skipping ones already cached
	StoreTransactions(ctx context.Context, txs []*entities.StoredTransaction) (int64, error)

	// GetByAddress returns every cached record for an address ordered by timestamp
	GetByAddress(ctx context.Context, address string) ([]*entities.StoredTransaction, error)
}

// RateRepository defines the interface for cached rate history
type RateRepository interface {
	// CoveredRange returns the first and last cached sample days for a reserve, or zeros
	CoveredRange(ctx context.Context, reserveID string) (first, last entities.Day, err error)

	// StoreSamples bulk-upserts samples, replacing days already cached
	StoreSamples(ctx context.Context, reserveID string, samples []entities.RateSample) (int64, error)

	// GetByReserve returns every cached sample for a reserve ordered by day
	GetByReserve(ctx context.Context, reserveID string) ([]entities.RateSample, error)
}

// AccrualRunRepository defines the interface for reconciliation snapshots
type AccrualRunRepository interface {
	// Create records a new snapshot
	Create(ctx context.Context, run *entities.AccrualRun) error

	// GetLatest returns the newest snapshot for an address and token
	GetLatest(ctx context.Context, address, tokenSymbol string) (*entities.AccrualRun, error)

	// GetByAddress returns recent snapshots for an address, newest first
	GetByAddress(ctx context.Context, address string, limit int) ([]*entities.AccrualRun, error)
}

// EventPublisher defines the interface for publishing events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages a transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	TransactionRepository() TransactionRepository
	RateRepository() RateRepository
	AccrualRunRepository() AccrualRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
