package services

import (
	"context"

	"anchord/internal/models"
)

// Service is one ingestion step applied to an accepted ledger transaction
type Service interface {
	// Process handles a single validated transaction.
	// Any error aborts ingestion of this transaction and of the rest of the tick;
	// the transaction is picked up again on the next tick, so Process must be idempotent.
	Process(ctx context.Context, tx *models.LedgerTransaction) error

	// Name returns the service name for logging
	Name() string
}
