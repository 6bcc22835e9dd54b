package repository

import (
	"context"
	"testing"

	"lendledger/domain/entities"
	"lendledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRateRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty cache", func(t *testing.T) {
		first, last, err := repo.CoveredRange(ctx, testutil.TestReserveID)
		require.NoError(t, err)
		assert.Equal(t, entities.Day(0), first)
		assert.Equal(t, entities.Day(0), last)
	})

	t.Run("store keeps exact decimals", func(t *testing.T) {
		samples := []entities.RateSample{
			testutil.CreateTestRateSample(20240102, "5.123456789012345678901234567"),
			testutil.CreateTestRateSample(20240101, "4.5"),
		}
		inserted, err := repo.StoreSamples(ctx, testutil.TestReserveID, samples)
		require.NoError(t, err)
		assert.Equal(t, int64(2), inserted)

		first, last, err := repo.CoveredRange(ctx, testutil.TestReserveID)
		require.NoError(t, err)
		assert.Equal(t, entities.Day(20240101), first)
		assert.Equal(t, entities.Day(20240102), last)

		got, err := repo.GetByReserve(ctx, testutil.TestReserveID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, entities.Day(20240101), got[0].Key())
		assert.True(t, decimal.RequireFromString("5.123456789012345678901234567").Equal(got[1].VariableBorrowRateAvg))
		assert.True(t, decimal.RequireFromString("0.75").Equal(got[1].UtilizationRateAvg))
	})

	t.Run("last sample of a day wins within a batch", func(t *testing.T) {
		samples := []entities.RateSample{
			testutil.CreateTestRateSample(20240103, "1"),
			testutil.CreateTestRateSample(20240103, "2"),
		}
		inserted, err := repo.StoreSamples(ctx, testutil.TestReserveID, samples)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)

		got, err := repo.GetByReserve(ctx, testutil.TestReserveID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, decimal.NewFromInt(2).Equal(got[2].VariableBorrowRateAvg))
	})

	t.Run("cached days are refreshed", func(t *testing.T) {
		written, err := repo.StoreSamples(ctx, testutil.TestReserveID, []entities.RateSample{
			testutil.CreateTestRateSample(20240103, "3.25"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), written)

		got, err := repo.GetByReserve(ctx, testutil.TestReserveID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, decimal.RequireFromString("3.25").Equal(got[2].VariableBorrowRateAvg))
	})

	t.Run("reserves are isolated", func(t *testing.T) {
		got, err := repo.GetByReserve(ctx, "0xother")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
