package ports

import (
	"context"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/outcome"
)

// TransactionSource supplies already-normalized transactions for an entity
// and date range. Ingestion from point-of-sale providers lives upstream;
// the core only reads.
type TransactionSource interface {
	TransactionsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]outcome.Transaction, error)
}
