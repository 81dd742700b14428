package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anchord/internal/api"
	"anchord/internal/config"
	"anchord/internal/events"
	"anchord/internal/integration/backend"
	"anchord/internal/observer"
	"anchord/internal/orchestrator"
	"anchord/internal/processor"
	"anchord/internal/services"
	"anchord/internal/writer"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the observer loop and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(opts.cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	slog.Info("🌟 Starting anchord",
		"version", processor.Version,
		"backend", cfg.Backend.Kind,
		"network", cfg.Ledger.Network,
		"store", cfg.Store.Driver,
		"metadata_label", cfg.Ledger.MetadataLabel,
		"poll_seconds", cfg.Ledger.PollSeconds,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Store
	repo, err := openStore(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()
	slog.Info("Store connected", "driver", cfg.Store.Driver)

	// 2. Wallet
	w, err := importWallet(cfg)
	if err != nil {
		return fmt.Errorf("failed to import wallet: %w", err)
	}
	slog.Info("Wallet loaded", "address", w.Address())

	// 3. Ledger backend
	builder := &backend.LedgerBuilder{
		ClientConfig: cfg.BackendClientConfig(),
		Retry:        cfg.Retry,
		Breaker:      cfg.Breaker,
	}
	ledgerClient, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build ledger client: %w", err)
	}

	// 4. Events
	emitter := events.Multi{events.NewLogEmitter()}
	if cfg.Events.AMQPURL != "" {
		amqpEmitter, err := events.NewAMQPEmitter(events.AMQPConfig{
			URL:        cfg.Events.AMQPURL,
			Exchange:   cfg.Events.Exchange,
			RoutingKey: cfg.Events.RoutingKey,
		})
		if err != nil {
			return err
		}
		defer amqpEmitter.Close()
		emitter = append(emitter, amqpEmitter)
		slog.Info("Publishing loop events", "exchange", cfg.Events.Exchange)
	}

	// 5. Write path and request facade
	wr := writer.New(ledgerClient, w, emitter, writer.Config{
		Prefix:        cfg.Ledger.Prefix,
		MetadataLabel: cfg.Ledger.MetadataLabel,
		Reserve:       cfg.Ledger.WriteReserve,
	})
	proc := processor.New(ledgerClient, wr, repo, w.Address())
	if err := proc.Initialize(ctx); err != nil {
		return err
	}

	// 6. Ingestion: anchor log first, checkpoint last
	orch := orchestrator.New([]services.Service{
		services.NewAnchorService(cfg.Ledger.Prefix, repo),
		services.NewCheckpointService(repo),
	})
	slog.Info("Orchestrator enabled", "services", len(orch.Services()))

	obs := observer.New(ledgerClient, repo, orch, emitter, observer.Config{
		PollInterval:     cfg.PollInterval(),
		MetadataLabel:    cfg.MetadataLabelString(),
		Prefix:           cfg.Ledger.Prefix,
		MinConfirmations: cfg.Ledger.MinConfirmations,
		FetchWorkers:     cfg.Ledger.FetchWorkers,
	})
	obs.Start(ctx)

	// 7. HTTP API
	server := api.NewServer(cfg.Port, proc, repo, api.Options{LogRequestError: cfg.Log.LogRequestError})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	// Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}
	cancel()
	obs.Stop()

	slog.Info("anchord stopped")
	return nil
}
