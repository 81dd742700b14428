// Package observer discovers, validates and ingests anchor transactions from
// the ledger on a fixed polling interval.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"anchord/internal/debug"
	"anchord/internal/events"
	"anchord/internal/metrics"
	"anchord/internal/models"
	"anchord/internal/pipeline"
)

// ErrTickInProgress is returned by Tick when another tick is still running
var ErrTickInProgress = errors.New("observer tick already in progress")

// Reader is the part of the ledger client the observer needs
type Reader interface {
	PageReader
	GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error)
}

// CheckpointReader returns the newest ingested transaction, nil when none
type CheckpointReader interface {
	GetLastTransactionMetadata(ctx context.Context) (*models.LedgerTransaction, error)
}

// Ingester persists an accepted transaction
type Ingester interface {
	ProcessTx(ctx context.Context, tx *models.LedgerTransaction) error
}

// Config controls discovery and validation
type Config struct {
	PollInterval     time.Duration
	MetadataLabel    string
	Prefix           string
	MinConfirmations int64

	// FetchWorkers bounds concurrent transaction fetches within a tick
	FetchWorkers int
}

// Observer polls the ledger for new anchor transactions
type Observer struct {
	reader      Reader
	checkpoints CheckpointReader
	ingester    Ingester
	emitter     events.Emitter
	fetcher     *pipeline.Pipeline
	cfg         Config

	// single-slot guard: at most one tick in flight
	tickMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Observer
func New(reader Reader, checkpoints CheckpointReader, ingester Ingester, emitter events.Emitter, cfg Config) *Observer {
	if emitter == nil {
		emitter = events.Nop{}
	}
	fetcher := pipeline.New(reader, pipeline.Config{WorkerCount: cfg.FetchWorkers})
	metrics.PipelineWorkerCount.Set(float64(fetcher.WorkerCount()))
	return &Observer{
		reader:      reader,
		checkpoints: checkpoints,
		ingester:    ingester,
		emitter:     emitter,
		fetcher:     fetcher,
		cfg:         cfg,
	}
}

// Start launches the polling loop. The first tick runs immediately and each
// following one PollInterval after the previous finished. A non-positive
// interval leaves the observer passive.
func (o *Observer) Start(ctx context.Context) {
	if o.cfg.PollInterval <= 0 {
		slog.Info("Observer in passive mode, polling disabled")
		return
	}

	ctx, o.cancel = context.WithCancel(ctx)

	slog.Info("Starting observer",
		"poll_interval", o.cfg.PollInterval,
		"metadata_label", o.cfg.MetadataLabel,
		"min_confirmations", o.cfg.MinConfirmations,
	)

	o.wg.Add(1)
	go o.run(ctx)
}

func (o *Observer) run(ctx context.Context) {
	defer o.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("Context cancelled, stopping observer")
			return
		case <-timer.C:
			// failures are logged and emitted by Tick; the loop always goes on
			_ = o.Tick(ctx)
			timer.Reset(o.cfg.PollInterval)
		}
	}
}

// Stop cancels the loop and waits for the in-flight tick to return
func (o *Observer) Stop() {
	if o.cancel == nil {
		return
	}
	slog.Info("Stopping observer...")
	o.cancel()
	o.wg.Wait()
	slog.Info("Observer stopped")
}

// Tick runs one discovery and ingestion pass
func (o *Observer) Tick(ctx context.Context) error {
	if !o.tickMu.TryLock() {
		return ErrTickInProgress
	}
	defer o.tickMu.Unlock()

	startTime := time.Now()
	ingested, err := o.poll(ctx)
	duration := time.Since(startTime)
	metrics.ObserverTickDuration.Observe(duration.Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		metrics.ObserverTicks.WithLabelValues("failure").Inc()
		slog.Error("Observer tick failed", "error", err, "ingested", ingested)
		o.emitter.Emit(ctx, events.New(events.ObservingLoopFailure, map[string]any{
			"error": err.Error(),
		}))
		return err
	}

	metrics.ObserverTicks.WithLabelValues("success").Inc()
	slog.Debug("Observer tick finished",
		"ingested", ingested,
		"duration_ms", duration.Milliseconds(),
	)
	o.emitter.Emit(ctx, events.New(events.ObservingLoopSuccess, map[string]any{
		"ingested": ingested,
	}))
	return nil
}

func (o *Observer) poll(ctx context.Context) (int, error) {
	last, err := o.checkpoints.GetLastTransactionMetadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	checkpoint := ""
	if last != nil {
		checkpoint = last.Hash
	}

	hashes, err := Discover(ctx, o.reader, o.cfg.MetadataLabel, checkpoint)
	if err != nil {
		return 0, err
	}
	if len(hashes) > 0 {
		slog.Info("New labelled transactions discovered",
			"count", len(hashes),
			"checkpoint", checkpoint,
		)
	}

	ingested := 0
	err = o.fetcher.Run(ctx, hashes, func(ctx context.Context, tx *models.LedgerTransaction) error {
		debug.PrintLedgerTransaction(tx)

		reason, ok := Check(tx, o.cfg.Prefix, o.cfg.MinConfirmations)
		if !ok {
			metrics.TransactionsRejected.WithLabelValues(string(reason)).Inc()
			slog.Debug("Transaction rejected",
				"tx_hash", tx.Hash,
				"reason", reason,
				"confirmations", tx.Confirmations,
			)
			if reason == RejectConfirmations {
				// everything after this one is newer still; keep the
				// checkpoint here so it is judged again next tick
				return pipeline.ErrStop
			}
			return nil
		}

		if err := o.ingester.ProcessTx(ctx, tx); err != nil {
			return fmt.Errorf("failed to ingest transaction %s: %w", tx.Hash, err)
		}
		ingested++
		return nil
	})
	if err != nil {
		return ingested, err
	}

	return ingested, nil
}
