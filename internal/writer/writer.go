// Package writer anchors payloads on the ledger by building, funding and
// submitting a metadata-carrying transaction.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"anchord/internal/apperr"
	"anchord/internal/events"
	"anchord/internal/metrics"
	"anchord/internal/models"
)

// DefaultReserve is the lovelace kept in the wallet on top of the fee
const DefaultReserve int64 = 1_000_000

// Ledger is the part of the ledger client the writer needs
type Ledger interface {
	GetTip(ctx context.Context) (*models.Block, error)
	GetUTXOs(ctx context.Context, address string) ([]models.UTXO, error)
	GetBalance(ctx context.Context, address string) (int64, error)
	GetProtocolParameters(ctx context.Context) (*models.ProtocolParameters, error)
	Submit(ctx context.Context, signedTx []byte) (string, error)
}

// Wallet builds and signs funded transactions
type Wallet interface {
	Address() string
	BuildAndSign(label uint64, payload string, params *models.ProtocolParameters, utxos []models.UTXO, tip *models.Block) (*models.SignedTransaction, error)
}

// Config controls what the writer puts on the ledger
type Config struct {
	Prefix        string
	MetadataLabel uint64
	Reserve       int64
}

// Writer is the funded-write path.
//
// Concurrent writes fetch the same UTXO set and may build transactions that
// spend the same outputs; the ledger then accepts only one of them and the
// other submit fails.
type Writer struct {
	ledger  Ledger
	wallet  Wallet
	emitter events.Emitter
	cfg     Config
}

// New creates a new Writer
func New(ledger Ledger, wallet Wallet, emitter events.Emitter, cfg Config) *Writer {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Writer{
		ledger:  ledger,
		wallet:  wallet,
		emitter: emitter,
		cfg:     cfg,
	}
}

// Write anchors anchorString and returns the submitted transaction id
func (w *Writer) Write(ctx context.Context, anchorString string) (string, error) {
	txID, err := w.write(ctx, anchorString)
	if err != nil {
		outcome := "failure"
		if errors.Is(err, apperr.ErrInsufficientFunds) {
			outcome = "insufficient_funds"
		}
		metrics.Writes.WithLabelValues(outcome).Inc()
		w.emitter.Emit(ctx, events.New(events.WriteFailure, map[string]any{"error": err.Error()}))
		return "", err
	}

	metrics.Writes.WithLabelValues("success").Inc()
	w.emitter.Emit(ctx, events.New(events.WriteSuccess, map[string]any{"tx_id": txID}))
	return txID, nil
}

func (w *Writer) write(ctx context.Context, anchorString string) (string, error) {
	payload := w.cfg.Prefix + anchorString
	address := w.wallet.Address()

	params, err := w.ledger.GetProtocolParameters(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get protocol parameters: %w", err)
	}
	tip, err := w.ledger.GetTip(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get ledger tip: %w", err)
	}
	utxos, err := w.ledger.GetUTXOs(ctx, address)
	if err != nil {
		return "", fmt.Errorf("failed to get utxos: %w", err)
	}

	signed, err := w.wallet.BuildAndSign(w.cfg.MetadataLabel, payload, params, utxos, tip)
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientFunds) {
			return "", apperr.New(http.StatusBadRequest, apperr.CodeNotEnoughBalanceForWrite, err)
		}
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	balance, err := w.ledger.GetBalance(ctx, address)
	if err != nil {
		return "", fmt.Errorf("failed to get wallet balance: %w", err)
	}
	metrics.WalletBalance.Set(float64(balance))

	if balance < signed.Fee+w.cfg.Reserve {
		slog.Warn("Not enough balance to write anchor",
			"balance", balance,
			"fee", signed.Fee,
			"reserve", w.cfg.Reserve,
		)
		return "", apperr.New(http.StatusBadRequest, apperr.CodeNotEnoughBalanceForWrite,
			fmt.Errorf("%w: balance %d is below fee %d plus reserve %d", apperr.ErrInsufficientFunds, balance, signed.Fee, w.cfg.Reserve))
	}

	txID, err := w.ledger.Submit(ctx, signed.CBOR)
	if err != nil {
		return "", fmt.Errorf("failed to submit transaction %s: %w", signed.Hash, err)
	}

	slog.Info("Anchor transaction submitted",
		"tx_id", txID,
		"fee", signed.Fee,
		"payload_bytes", len(payload),
	)
	return txID, nil
}
