package main

import (
	"fmt"
	"log/slog"

	"anchord/internal/processor"
	"anchord/internal/storage"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := openStore(cmd.Context(), opts.cfg, true)
			if err != nil {
				return err
			}
			defer repo.Close()
			slog.Info("Store schema is up to date", "driver", opts.cfg.Store.Driver)
			return nil
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var after int64
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop ingested anchors and checkpoints so the observer re-reads them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := openStore(ctx, opts.cfg, true)
			if err != nil {
				return err
			}
			defer repo.Close()

			var bound *int64
			if cmd.Flags().Changed("after") {
				bound = &after
			}
			if err := storage.Reset(ctx, repo, bound); err != nil {
				return err
			}

			if bound == nil {
				slog.Info("Store reset, all anchors removed")
			} else {
				slog.Info("Store reset", "after_transaction_number", *bound)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "Keep entries up to this transaction number (default: remove everything)")
	return cmd
}

func newAddressCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address to fund",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := importWallet(opts.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), w.Address())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (database %s)\n",
				processor.ServiceName, processor.Version, processor.DatabaseVersion)
			return err
		},
	}
}
