package repository

import (
	"context"
	"fmt"

	"lendledger/database"
	"lendledger/domain/entities"
	"lendledger/domain/interfaces"
)

var rawTransactionColumns = []string{
	"id", "address", "source_type", "tx_hash", "amount", "timestamp", "reserve_id", "from_address", "to_address",
}

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) interfaces.TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) interfaces.TransactionRepository {
	return &TransactionRepository{q: tx}
}

// LatestTimestamp returns the newest cached record timestamp for an address
func (r *TransactionRepository) LatestTimestamp(ctx context.Context, address string) (int64, error) {
	var latest int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(timestamp), 0)
		FROM raw_transactions
		WHERE address = $1
	`, address).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest timestamp for %s: %w", address, err)
	}
	return latest, nil
}

// StoreTransactions inserts records that are not cached yet and returns how many were new
func (r *TransactionRepository) StoreTransactions(ctx context.Context, txs []*entities.StoredTransaction) (int64, error) {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			t.ID, t.Address, string(t.SourceType), t.TxHash, t.Amount, t.Timestamp, t.ReserveID, t.FromAddr, t.ToAddr,
		})
	}

	inserted, err := bulkInsert(ctx, r.q, "raw_transactions", rawTransactionColumns, rows, "DO NOTHING")
	if err != nil {
		return 0, fmt.Errorf("failed to store %d transactions: %w", len(txs), err)
	}
	return inserted, nil
}

// GetByAddress returns every cached record for an address in timestamp order
func (r *TransactionRepository) GetByAddress(ctx context.Context, address string) ([]*entities.StoredTransaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, address, source_type, tx_hash, amount, timestamp, reserve_id, from_address, to_address
		FROM raw_transactions
		WHERE address = $1
		ORDER BY timestamp, tx_hash, id
	`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", address, err)
	}
	defer rows.Close()

	var out []*entities.StoredTransaction
	for rows.Next() {
		var t entities.StoredTransaction
		var source string
		if err := rows.Scan(&t.ID, &t.Address, &source, &t.TxHash, &t.Amount, &t.Timestamp, &t.ReserveID, &t.FromAddr, &t.ToAddr); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.SourceType = entities.SourceType(source)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}
