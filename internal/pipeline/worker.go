package pipeline

import (
	"context"
	"log/slog"
	"time"

	"anchord/internal/metrics"
	"anchord/internal/models"
)

// Fetcher loads a full transaction by hash
type Fetcher interface {
	GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error)
}

// Worker fetches transactions for the pipeline
type Worker struct {
	id      int
	fetcher Fetcher
}

// NewWorker creates a new pipeline worker
func NewWorker(id int, fetcher Fetcher) *Worker {
	return &Worker{id: id, fetcher: fetcher}
}

// Fetch loads one transaction. Failures are carried in the result so the
// orderer can report them at the right position.
func (w *Worker) Fetch(ctx context.Context, index int, hash string) *FetchedTx {
	start := time.Now()
	tx, err := w.fetcher.GetTransaction(ctx, hash)
	fetchTime := time.Since(start)
	metrics.TransactionFetchDuration.Observe(fetchTime.Seconds())

	slog.Debug("Worker fetched transaction",
		"worker_id", w.id,
		"index", index,
		"tx_hash", hash,
		"duration_ms", fetchTime.Milliseconds(),
		"error", err,
	)

	return &FetchedTx{
		Index:     index,
		Hash:      hash,
		Tx:        tx,
		Err:       err,
		FetchTime: fetchTime,
		WorkerID:  w.id,
	}
}
