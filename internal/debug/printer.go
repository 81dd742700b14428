package debug

import (
	"context"
	"encoding/json"
	"log/slog"

	"anchord/internal/models"
)

// PrintAnchorRecord prints the anchor record in JSON format
func PrintAnchorRecord(record *models.AnchorRecord) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal anchor record to JSON", "error", err)
		return
	}

	slog.Debug("Anchor record details", "json", string(jsonData))
}

// PrintLedgerTransaction prints the fetched ledger transaction in JSON format
func PrintLedgerTransaction(tx *models.LedgerTransaction) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	jsonData, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal ledger transaction to JSON", "error", err)
		return
	}

	slog.Debug("Ledger transaction details", "json", string(jsonData))
}
