package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"anchord/internal/models"
	"anchord/internal/services"
)

// Orchestrator runs an accepted transaction through the ingestion services in order
type Orchestrator struct {
	services []services.Service
}

// New creates a new Orchestrator with the given services
func New(services []services.Service) *Orchestrator {
	return &Orchestrator{
		services: services,
	}
}

// ProcessTx runs a transaction through all registered services.
// The first failing service stops the chain so later steps never run ahead of earlier ones.
func (o *Orchestrator) ProcessTx(ctx context.Context, tx *models.LedgerTransaction) error {
	slog.Debug("Orchestrator: Processing transaction",
		"tx_hash", tx.Hash,
		"transaction_number", tx.TransactionNumber,
		"services_count", len(o.services),
	)

	for _, service := range o.services {
		if err := service.Process(ctx, tx); err != nil {
			slog.Error("Service processing failed",
				"service", service.Name(),
				"tx_hash", tx.Hash,
				"error", err,
			)
			return fmt.Errorf("%s: %w", service.Name(), err)
		}
	}

	return nil
}

// Services returns the list of registered services (for inspection/testing)
func (o *Orchestrator) Services() []services.Service {
	return o.services
}
