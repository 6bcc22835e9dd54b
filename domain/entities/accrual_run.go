package entities

import (
	"time"
)

// AccrualRun is the persisted snapshot of one reconciliation for an address and token
type AccrualRun struct {
	ID               int64                  `db:"id"`
	Address          string                 `db:"address"`
	TokenSymbol      string                 `db:"token_symbol"`
	FromDay          Day                    `db:"from_day"`
	ToDay            Day                    `db:"to_day"`
	DebtBalance      string                 `db:"debt_balance"`
	SupplyBalance    string                 `db:"supply_balance"`
	DebtInterest     string                 `db:"debt_interest"`
	SupplyInterest   string                 `db:"supply_interest"`
	IssueCount       int                    `db:"issue_count"`
	ExecutionSummary map[string]interface{} `db:"execution_summary"`
	CreatedAt        time.Time              `db:"created_at"`
}

// StoredTransaction is a raw record as kept by the cache store
type StoredTransaction struct {
	ID         string
	Address    string
	SourceType SourceType
	TxHash     string
	Amount     string
	Timestamp  int64
	ReserveID  string
	FromAddr   string
	ToAddr     string
}

// StoredRateSample is a rate sample as kept by the cache store
type StoredRateSample struct {
	ReserveID string
	Sample    RateSample
}
