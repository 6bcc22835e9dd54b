package infrastructure

import (
	"context"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
)

// TransactionFetcher reads a wallet's raw protocol records
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error)
}

// RateFetcher reads a reserve's daily rate history
type RateFetcher interface {
	FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error)
}

type upstreamSource struct {
	transactions TransactionFetcher
	rates        RateFetcher
}

// NewUpstreamSource combines a record fetcher and a rate fetcher into one data source
func NewUpstreamSource(transactions TransactionFetcher, rates RateFetcher) interfaces.DataSource {
	return &upstreamSource{transactions: transactions, rates: rates}
}

func (s *upstreamSource) FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error) {
	return s.transactions.FetchTransactions(ctx, address, since)
}

func (s *upstreamSource) FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error) {
	return s.rates.FetchRateHistory(ctx, reserveID, from)
}
