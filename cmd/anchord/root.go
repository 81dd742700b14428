package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"anchord/internal/apperr"
	"anchord/internal/config"
	"anchord/internal/storage"
	"anchord/internal/wallet"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	LogLevel  string
	LogFormat string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "anchord",
		Short:         "Ledger anchoring service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			if opts.LogFormat != "" {
				cfg.Log.Format = opts.LogFormat
			}
			if _, err := config.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newResetCmd(opts),
		newAddressCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// openStore connects to the configured store. Postgres schemas are migrated
// first when migrate is set; the other drivers create their schema on open.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (storage.Repository, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		if migrate {
			if err := storage.Migrate(cfg.Store.PostgresURL); err != nil {
				return nil, err
			}
		}
		return storage.NewPostgresRepository(ctx, cfg.Store.PostgresURL)
	case config.StoreSQLite:
		return storage.NewSQLiteRepository(ctx, cfg.Store.SQLitePath)
	case config.StoreMongo:
		return storage.NewMongoRepository(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
	case config.StoreMemory:
		slog.Warn("Using in-memory store, anchors are lost on restart")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// importWallet derives the service wallet from the configured mnemonic
func importWallet(cfg *config.Config) (*wallet.Wallet, error) {
	w, err := wallet.New(cfg.Ledger.Mnemonic, wallet.Network(cfg.Ledger.Network))
	if errors.Is(err, wallet.ErrIncorrectImportString) {
		return nil, apperr.New(http.StatusInternalServerError, apperr.CodeWalletIncorrectImportString, err)
	}
	return w, err
}
