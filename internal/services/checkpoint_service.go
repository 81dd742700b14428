package services

import (
	"context"
	"fmt"

	"anchord/internal/models"
)

// MetadataAdder is the part of the metadata store CheckpointService writes to
type MetadataAdder interface {
	AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error
}

// CheckpointService records the ingested transaction in the metadata store,
// which advances the observer checkpoint. Register it after AnchorService.
type CheckpointService struct {
	store MetadataAdder
}

// NewCheckpointService creates a new CheckpointService
func NewCheckpointService(store MetadataAdder) *CheckpointService {
	return &CheckpointService{store: store}
}

// Process stores tx as the newest ingested transaction
func (s *CheckpointService) Process(ctx context.Context, tx *models.LedgerTransaction) error {
	if err := s.store.AddTransactionMetadata(ctx, *tx); err != nil {
		return fmt.Errorf("failed to record checkpoint %s: %w", tx.Hash, err)
	}
	return nil
}

// Name returns the service name
func (s *CheckpointService) Name() string {
	return "CheckpointService"
}
