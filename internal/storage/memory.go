package storage

import (
	"context"
	"sort"
	"sync"

	"anchord/internal/models"
)

// MemoryRepository is a process-local Repository used for development and tests
type MemoryRepository struct {
	mu       sync.RWMutex
	metadata []models.LedgerTransaction
	anchors  []models.AnchorRecord
	state    *models.ServiceState
}

// NewMemoryRepository creates an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) AddTransactionMetadata(ctx context.Context, txs ...models.LedgerTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range txs {
		i := sort.Search(len(r.metadata), func(i int) bool {
			return r.metadata[i].TransactionNumber >= tx.TransactionNumber
		})
		if i < len(r.metadata) && r.metadata[i].TransactionNumber == tx.TransactionNumber {
			continue
		}
		r.metadata = append(r.metadata, models.LedgerTransaction{})
		copy(r.metadata[i+1:], r.metadata[i:])
		r.metadata[i] = tx
	}
	return nil
}

func (r *MemoryRepository) GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.metadata) == 0 {
		return nil, nil
	}
	last := r.metadata[len(r.metadata)-1]
	return &last, nil
}

func (r *MemoryRepository) ListTransactionMetadata(ctx context.Context, from, to int64) ([]models.LedgerTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.LedgerTransaction
	for _, tx := range r.metadata {
		if tx.TransactionNumber >= from && tx.TransactionNumber < to {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *MemoryRepository) RemoveTransactionMetadataLaterThan(ctx context.Context, after *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if after == nil {
		r.metadata = nil
		return nil
	}
	kept := r.metadata[:0]
	for _, tx := range r.metadata {
		if tx.TransactionNumber <= *after {
			kept = append(kept, tx)
		}
	}
	r.metadata = kept
	return nil
}

func (r *MemoryRepository) AddAnchor(ctx context.Context, record *models.AnchorRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.anchors), func(i int) bool {
		return r.anchors[i].TransactionNumber >= record.TransactionNumber
	})
	if i < len(r.anchors) && r.anchors[i].TransactionNumber == record.TransactionNumber {
		return nil
	}
	r.anchors = append(r.anchors, models.AnchorRecord{})
	copy(r.anchors[i+1:], r.anchors[i:])
	r.anchors[i] = *record
	return nil
}

func (r *MemoryRepository) GetAnchor(ctx context.Context, transactionNumber int64) (*models.AnchorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.anchors {
		if a.TransactionNumber == transactionNumber {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListAnchors(ctx context.Context) ([]models.AnchorRecord, error) {
	return r.ListAnchorsLaterThan(ctx, -1, 0)
}

func (r *MemoryRepository) ListAnchorsLaterThan(ctx context.Context, since int64, limit int) ([]models.AnchorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.AnchorRecord{}
	for _, a := range r.anchors {
		if a.TransactionNumber <= since {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) RemoveAnchorsLaterThan(ctx context.Context, after *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if after == nil {
		r.anchors = nil
		return nil
	}
	kept := r.anchors[:0]
	for _, a := range r.anchors {
		if a.TransactionNumber <= *after {
			kept = append(kept, a)
		}
	}
	r.anchors = kept
	return nil
}

func (r *MemoryRepository) GetServiceState(ctx context.Context) (*models.ServiceState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state == nil {
		return nil, nil
	}
	state := *r.state
	return &state, nil
}

func (r *MemoryRepository) PutServiceState(ctx context.Context, state *models.ServiceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *state
	r.state = &s
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
