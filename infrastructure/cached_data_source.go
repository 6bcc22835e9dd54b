package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
	"lendledger/events"

	log "github.com/sirupsen/logrus"
)

// cachedDataSource serves records from the store after pulling anything newer
// from upstream. The network fetch happens outside any database transaction.
type cachedDataSource struct {
	uowFactory interfaces.UnitOfWorkFactory
	upstream   interfaces.DataSource
}

// NewCachedDataSource creates a read-through cache in front of upstream
func NewCachedDataSource(uowFactory interfaces.UnitOfWorkFactory, upstream interfaces.DataSource) interfaces.DataSource {
	return &cachedDataSource{
		uowFactory: uowFactory,
		upstream:   upstream,
	}
}

// FetchTransactions refreshes the wallet's cached records and returns those at or after since
func (s *cachedDataSource) FetchTransactions(ctx context.Context, address string, since int64) (entities.TransactionCollections, error) {
	address = strings.ToLower(address)

	latest, err := s.latestTimestamp(ctx, address)
	if err != nil {
		return entities.TransactionCollections{}, err
	}

	// The upstream cursor is inclusive so records sharing the newest cached
	// timestamp are fetched again and absorbed by the store
	fresh, fetchErr := s.upstream.FetchTransactions(ctx, address, latest)
	if fetchErr != nil {
		if latest == 0 {
			return entities.TransactionCollections{}, fmt.Errorf("failed to fetch transactions: %w", fetchErr)
		}
		log.WithFields(log.Fields{
			"address":  address,
			"cachedTo": latest,
			"error":    fetchErr,
		}).Warn("Upstream transaction fetch failed, serving cached records")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return entities.TransactionCollections{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.TransactionRepository()
	if fetchErr == nil && fresh.Len() > 0 {
		inserted, err := repo.StoreTransactions(ctx, toStoredTransactions(address, fresh))
		if err != nil {
			return entities.TransactionCollections{}, err
		}
		if inserted > 0 {
			uow.EventBus().Publish(events.RecordsCachedEvent{
				Address:      address,
				Transactions: inserted,
			})
		}
	}

	stored, err := repo.GetByAddress(ctx, address)
	if err != nil {
		return entities.TransactionCollections{}, err
	}

	if err := uow.Commit(); err != nil {
		return entities.TransactionCollections{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return fromStoredTransactions(stored, since), nil
}

func (s *cachedDataSource) latestTimestamp(ctx context.Context, address string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().LatestTimestamp(ctx, address)
}

// FetchRateHistory refreshes the reserve's cached samples and returns every cached
// sample. Earlier days are kept so a gap at the start of the window can be carried.
func (s *cachedDataSource) FetchRateHistory(ctx context.Context, reserveID string, from entities.Day) ([]entities.RateSample, error) {
	reserveID = strings.ToLower(reserveID)

	first, last, err := s.coveredRange(ctx, reserveID)
	if err != nil {
		return nil, err
	}

	// The last cached day may have been a partial average, so it is always refetched
	fetchFrom := from
	if first != 0 && from >= first {
		fetchFrom = last
	}

	fresh, fetchErr := s.upstream.FetchRateHistory(ctx, reserveID, fetchFrom)
	if fetchErr != nil {
		if first == 0 {
			return nil, fmt.Errorf("failed to fetch rate history: %w", fetchErr)
		}
		log.WithFields(log.Fields{
			"reserveID": reserveID,
			"cachedTo":  last,
			"error":     fetchErr,
		}).Warn("Upstream rate fetch failed, serving cached samples")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	repo := uow.RateRepository()
	if fetchErr == nil && len(fresh) > 0 {
		written, err := repo.StoreSamples(ctx, reserveID, fresh)
		if err != nil {
			return nil, err
		}
		if written > 0 {
			uow.EventBus().Publish(events.RecordsCachedEvent{
				ReserveID:   reserveID,
				RateSamples: written,
			})
		}
	}

	samples, err := repo.GetByReserve(ctx, reserveID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return samples, nil
}

func (s *cachedDataSource) coveredRange(ctx context.Context, reserveID string) (entities.Day, entities.Day, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RateRepository().CoveredRange(ctx, reserveID)
}

func toStoredTransactions(address string, c entities.TransactionCollections) []*entities.StoredTransaction {
	out := make([]*entities.StoredTransaction, 0, c.Len())
	add := func(raw entities.RawTransaction, source entities.SourceType) {
		out = append(out, &entities.StoredTransaction{
			ID:         raw.ID,
			Address:    address,
			SourceType: source,
			TxHash:     raw.TxHash,
			Amount:     raw.Amount,
			Timestamp:  raw.Timestamp,
			ReserveID:  strings.ToLower(raw.Reserve.ID),
		})
	}
	for _, r := range c.Borrows {
		add(r, entities.SourceTypeBorrow)
	}
	for _, r := range c.Repays {
		add(r, entities.SourceTypeRepay)
	}
	for _, r := range c.Supplies {
		add(r, entities.SourceTypeSupply)
	}
	for _, r := range c.Withdraws {
		add(r, entities.SourceTypeWithdraw)
	}
	for _, t := range c.Transfers {
		source := entities.SourceTypeTransferOut
		if strings.EqualFold(t.To, address) {
			source = entities.SourceTypeTransferIn
		}
		out = append(out, &entities.StoredTransaction{
			ID:         t.ID,
			Address:    address,
			SourceType: source,
			TxHash:     t.TxHash,
			Amount:     t.Amount,
			Timestamp:  t.Timestamp,
			ReserveID:  strings.ToLower(t.Reserve.ID),
			FromAddr:   strings.ToLower(t.From),
			ToAddr:     strings.ToLower(t.To),
		})
	}
	return out
}

func fromStoredTransactions(stored []*entities.StoredTransaction, since int64) entities.TransactionCollections {
	var c entities.TransactionCollections
	for _, t := range stored {
		if t.Timestamp < since {
			continue
		}
		raw := entities.RawTransaction{
			ID:        t.ID,
			TxHash:    t.TxHash,
			Amount:    t.Amount,
			Timestamp: t.Timestamp,
			Reserve:   entities.Reserve{ID: t.ReserveID},
		}
		switch t.SourceType {
		case entities.SourceTypeBorrow:
			c.Borrows = append(c.Borrows, raw)
		case entities.SourceTypeRepay:
			c.Repays = append(c.Repays, raw)
		case entities.SourceTypeSupply:
			c.Supplies = append(c.Supplies, raw)
		case entities.SourceTypeWithdraw:
			c.Withdraws = append(c.Withdraws, raw)
		case entities.SourceTypeTransferIn, entities.SourceTypeTransferOut:
			c.Transfers = append(c.Transfers, entities.RawTransfer{
				ID:        t.ID,
				TxHash:    t.TxHash,
				Amount:    t.Amount,
				Timestamp: t.Timestamp,
				Reserve:   entities.Reserve{ID: t.ReserveID},
				From:      t.FromAddr,
				To:        t.ToAddr,
			})
		default:
			log.WithFields(log.Fields{
				"id":         t.ID,
				"sourceType": t.SourceType,
			}).Warn("Skipping cached record with unknown source type")
		}
	}
	return c
}
