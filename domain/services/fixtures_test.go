package services

import (
	"testing"

	"lendledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1111111111111111111111111111111111111111"

var testToken = entities.Token{
	Symbol:   "USDC",
	Decimals: 6,
	Address:  "0xddafbb505ad214d7b80b1f830fccc89b60fb7a83",
}

var testReserve = entities.Reserve{ID: testToken.Address + "0xb50201558b00496a145fe76f7424749556e326d8"}

// dayTS returns a unix timestamp hour hours into the given day
func dayTS(d entities.Day, hour int) int64 {
	return d.Time().Unix() + int64(hour)*3600
}

func rawTx(id, hash, amount string, d entities.Day, hour int) entities.RawTransaction {
	return entities.RawTransaction{
		ID:        id,
		TxHash:    hash,
		Amount:    amount,
		Timestamp: dayTS(d, hour),
		Reserve:   testReserve,
	}
}

func rateSample(d entities.Day, apr string) entities.RateSample {
	t := d.Time()
	return entities.RateSample{
		Year:                  t.Year(),
		Month:                 int(t.Month()),
		Day:                   t.Day(),
		VariableBorrowRateAvg: decimal.RequireFromString(apr),
		UtilizationRateAvg:    decimal.RequireFromString("0.8"),
	}
}

func flatSamples(from, to entities.Day, apr string) []entities.RateSample {
	var out []entities.RateSample
	for _, d := range entities.DayRange(from, to) {
		out = append(out, rateSample(d, apr))
	}
	return out
}

func flatSeries(t *testing.T, from, to entities.Day, apr string) *entities.RateSeries {
	t.Helper()
	series, _, err := NewRateNormalizer(LeadingGapBackfill).Normalize(flatSamples(from, to, apr), from, to, BorrowAPR)
	require.NoError(t, err)
	return series
}

func usdc(base int64) entities.Amount {
	return entities.NewAmountFromInt64(base, testToken.Decimals)
}

func debtEvent(d entities.Day, hour int, dir entities.Direction, amount int64) entities.TransactionEvent {
	source := entities.SourceTypeBorrow
	if dir == entities.DirectionDecrease {
		source = entities.SourceTypeRepay
	}
	return entities.TransactionEvent{
		Day:        d,
		Timestamp:  dayTS(d, hour),
		Side:       entities.SideDebt,
		Direction:  dir,
		Amount:     usdc(amount),
		SourceType: source,
		TxHash:     "0x" + d.String(),
	}
}
