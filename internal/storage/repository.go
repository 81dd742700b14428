package storage

import (
	"context"
	"errors"
	"fmt"

	"anchord/internal/models"
)

// ErrNotFound is returned by lookups that match nothing
var ErrNotFound = errors.New("record not found")

// MetadataStore keeps every ingested ledger transaction keyed by transaction
// number. Its newest entry is the observer checkpoint.
type MetadataStore interface {
	// AddTransactionMetadata inserts transactions, ignoring ones already stored
	AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error

	// GetLastTransactionMetadata returns the entry with the highest transaction number,
	// or nil when the store is empty
	GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error)

	// ListTransactionMetadata returns entries with from <= number < to, ascending
	ListTransactionMetadata(ctx context.Context, from, to int64) ([]models.LedgerTransaction, error)

	// RemoveTransactionMetadataLaterThan deletes entries with a number greater than
	// after; a nil after empties the store
	RemoveTransactionMetadataLaterThan(ctx context.Context, after *int64) error
}

// AnchorStore is the append-only anchor log
type AnchorStore interface {
	// AddAnchor appends a record; appending a number already present is a no-op
	AddAnchor(ctx context.Context, record *models.AnchorRecord) error

	// GetAnchor returns the record with the given number or ErrNotFound
	GetAnchor(ctx context.Context, transactionNumber int64) (*models.AnchorRecord, error)

	// ListAnchors returns every record ordered by transaction number
	ListAnchors(ctx context.Context) ([]models.AnchorRecord, error)

	// ListAnchorsLaterThan returns records with a number greater than since, ascending.
	// A limit <= 0 means no limit.
	ListAnchorsLaterThan(ctx context.Context, since int64, limit int) ([]models.AnchorRecord, error)

	// RemoveAnchorsLaterThan deletes records with a number greater than after;
	// a nil after empties the log
	RemoveAnchorsLaterThan(ctx context.Context, after *int64) error
}

// ServiceStateStore holds the single schema-version record
type ServiceStateStore interface {
	// GetServiceState returns the stored state, or nil when none was written yet
	GetServiceState(ctx context.Context) (*models.ServiceState, error)
	PutServiceState(ctx context.Context, state *models.ServiceState) error
}

// Repository defines the interface for all storage operations
type Repository interface {
	MetadataStore
	AnchorStore
	ServiceStateStore

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}

// Reset drops anchors and metadata later than after (everything when nil).
// Anchors go first so the log never points past the checkpoint.
func Reset(ctx context.Context, repo Repository, after *int64) error {
	if err := repo.RemoveAnchorsLaterThan(ctx, after); err != nil {
		return fmt.Errorf("failed to remove anchors: %w", err)
	}
	if err := repo.RemoveTransactionMetadataLaterThan(ctx, after); err != nil {
		return fmt.Errorf("failed to remove transaction metadata: %w", err)
	}
	return nil
}
