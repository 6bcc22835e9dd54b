package infrastructure

import (
	"context"
	"errors"
	"testing"

	"lendledger/domain/entities"
	"lendledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamSource(t *testing.T) {
	ctx := context.Background()

	t.Run("transactions come from the record fetcher", func(t *testing.T) {
		records := &testhelpers.MockDataSource{}
		rates := &testhelpers.MockDataSource{}
		want := entities.TransactionCollections{
			Borrows: []entities.RawTransaction{{ID: "b1", Amount: "1000000000", Timestamp: 1704110400}},
		}
		records.On("FetchTransactions", ctx, testWallet, int64(100)).Return(want, nil)

		got, err := NewUpstreamSource(records, rates).FetchTransactions(ctx, testWallet, 100)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		records.AssertExpectations(t)
		rates.AssertNotCalled(t, "FetchTransactions")
	})

	t.Run("rates come from the rate fetcher", func(t *testing.T) {
		records := &testhelpers.MockDataSource{}
		rates := &testhelpers.MockDataSource{}
		from := entities.NewDay(2024, 1, 1)
		rates.On("FetchRateHistory", ctx, testReserve, from).Return(nil, errors.New("boom"))

		_, err := NewUpstreamSource(records, rates).FetchRateHistory(ctx, testReserve, from)
		assert.EqualError(t, err, "boom")
		records.AssertNotCalled(t, "FetchRateHistory")
	})
}
