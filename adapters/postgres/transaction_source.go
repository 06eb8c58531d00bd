package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"factorlens/domain/core"
	"factorlens/domain/outcome"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// TransactionSourceImpl reads transactions and their line items from
// PostgreSQL. Ingestion writes these tables; analysis only reads.
type TransactionSourceImpl struct {
	db *sqlx.DB
}

// NewTransactionSource creates a new PostgreSQL transaction source.
func NewTransactionSource(db *sqlx.DB) ports.TransactionSource {
	return &TransactionSourceImpl{db: db}
}

type transactionRow struct {
	ID         string    `db:"id"`
	EntityID   string    `db:"entity_id"`
	OccurredAt time.Time `db:"occurred_at"`
	Total      float64   `db:"total"`
	EmployeeID string    `db:"employee_id"`
	CustomerID string    `db:"customer_id"`
}

type itemRow struct {
	TransactionID string  `db:"transaction_id"`
	ItemName      string  `db:"item_name"`
	Quantity      int     `db:"quantity"`
	Price         float64 `db:"price"`
}

// TransactionsForRange returns the entity's transactions with line items
// for [start, end], ordered by time.
func (s *TransactionSourceImpl) TransactionsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]outcome.Transaction, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, entity_id, occurred_at, total, employee_id, customer_id
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		ORDER BY occurred_at ASC`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("list transactions", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var items []itemRow
	err = s.db.SelectContext(ctx, &items, `
		SELECT i.transaction_id, i.item_name, i.quantity, i.price
		FROM transaction_items i
		JOIN transactions t ON t.id = i.transaction_id
		WHERE t.entity_id = $1 AND t.occurred_at >= $2 AND t.occurred_at < $3 + INTERVAL '1 day'`,
		entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("list transaction items", err)
	}
	itemsByTx := make(map[string][]outcome.LineItem, len(rows))
	for _, it := range items {
		itemsByTx[it.TransactionID] = append(itemsByTx[it.TransactionID], outcome.LineItem{
			Name:     it.ItemName,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	out := make([]outcome.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, outcome.Transaction{
			ID:         row.ID,
			EntityID:   core.EntityID(row.EntityID),
			OccurredAt: row.OccurredAt.UTC(),
			Total:      row.Total,
			Items:      itemsByTx[row.ID],
			EmployeeID: row.EmployeeID,
			CustomerID: row.CustomerID,
		})
	}
	return out, nil
}
