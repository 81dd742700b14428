// Package pipeline fetches discovered transactions concurrently and hands
// them to the caller strictly in discovery order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"anchord/internal/models"
)

// ErrStop ends a run early without reporting a failure
var ErrStop = errors.New("pipeline stopped by handler")

// Handler consumes one fetched transaction. Returning ErrStop ends the run
// cleanly; any other error aborts it.
type Handler func(ctx context.Context, tx *models.LedgerTransaction) error

// Pipeline runs a pool of fetch workers in front of an orderer
type Pipeline struct {
	config  Config
	fetcher Fetcher
}

type job struct {
	index int
	hash  string
}

// New creates a new pipeline instance
func New(fetcher Fetcher, config Config) *Pipeline {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Pipeline{config: config, fetcher: fetcher}
}

// WorkerCount returns the number of concurrent fetches
func (p *Pipeline) WorkerCount() int {
	return p.config.WorkerCount
}

// Run fetches every hash and calls handle for each, in the order of hashes.
// The first fetch failure or handler error stops the run; transactions after
// it are never handed over.
func (p *Pipeline) Run(ctx context.Context, hashes []string, handle Handler) error {
	if len(hashes) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := min(p.config.WorkerCount, len(hashes))
	jobs := make(chan job)
	results := make(chan *FetchedTx, workerCount)

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			for j := range jobs {
				result := w.Fetch(ctx, j.index, j.hash)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}(NewWorker(i, p.fetcher))
	}

	// Feed hashes
	go func() {
		defer close(jobs)
		for i, hash := range hashes {
			select {
			case jobs <- job{index: i, hash: hash}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	orderer := NewOrderer()
	for result := range results {
		for _, ready := range orderer.Add(result) {
			if ready.Err != nil {
				return fmt.Errorf("failed to fetch transaction %s: %w", ready.Hash, ready.Err)
			}
			if err := handle(ctx, ready.Tx); err != nil {
				if errors.Is(err, ErrStop) {
					slog.Debug("Pipeline stopped early",
						"handled", ready.Index+1,
						"total", len(hashes),
					)
					return nil
				}
				return err
			}
		}
	}

	if orderer.GetNextExpected() < len(hashes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("pipeline ended after %d of %d transactions", orderer.GetNextExpected(), len(hashes))
	}
	return nil
}
