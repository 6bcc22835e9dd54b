package testutil

import (
	"fmt"

	"lendledger/domain/entities"

	"github.com/shopspring/decimal"
)

const (
	TestAddress   = "0x1111111111111111111111111111111111111111"
	TestReserveID = "0xddafbb505ad214d7b80b1f830fccc89b60fb7a830xb50201558b00496a145fe76f7424749556e326d8"
)

// CreateTestTransaction creates a cached record for the test address
func CreateTestTransaction(id string, source entities.SourceType, amount string, day entities.Day) *entities.StoredTransaction {
	return &entities.StoredTransaction{
		ID:         id,
		Address:    TestAddress,
		SourceType: source,
		TxHash:     fmt.Sprintf("0x%s", id),
		Amount:     amount,
		Timestamp:  day.Time().Unix() + 3600,
		ReserveID:  TestReserveID,
	}
}

// CreateTestRateSample creates a daily sample with the given APR percentage
func CreateTestRateSample(day entities.Day, apr string) entities.RateSample {
	t := day.Time()
	return entities.RateSample{
		Year:                  t.Year(),
		Month:                 int(t.Month()),
		Day:                   t.Day(),
		VariableBorrowRateAvg: decimal.RequireFromString(apr),
		UtilizationRateAvg:    decimal.RequireFromString("0.75"),
	}
}

// CreateTestAccrualRun creates a snapshot with default totals
func CreateTestAccrualRun(symbol string, from, to entities.Day) *entities.AccrualRun {
	return &entities.AccrualRun{
		Address:        TestAddress,
		TokenSymbol:    symbol,
		FromDay:        from,
		ToDay:          to,
		DebtBalance:    "1001233548",
		SupplyBalance:  "0",
		DebtInterest:   "1233548",
		SupplyInterest: "0",
		IssueCount:     1,
		ExecutionSummary: map[string]interface{}{
			"debt_days":   10,
			"supply_days": 0,
		},
	}
}
