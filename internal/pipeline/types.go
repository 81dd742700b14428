package pipeline

import (
	"time"

	"anchord/internal/models"
)

// FetchedTx is a worker's result for one discovered hash.
// Index is the hash's position in discovery order.
type FetchedTx struct {
	Index int
	Hash  string
	Tx    *models.LedgerTransaction
	Err   error

	// Processing metrics
	FetchTime time.Duration
	WorkerID  int
}

// Config contains configuration for the fetch pipeline
type Config struct {
	// WorkerCount is the number of concurrent fetches; values below 1 mean 1
	WorkerCount int
}
