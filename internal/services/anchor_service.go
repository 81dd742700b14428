package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"anchord/internal/debug"
	"anchord/internal/metrics"
	"anchord/internal/models"
)

// AnchorAppender is the part of the anchor log AnchorService writes to
type AnchorAppender interface {
	AddAnchor(ctx context.Context, record *models.AnchorRecord) error
}

// AnchorService derives an AnchorRecord from an accepted transaction and appends it to the log
type AnchorService struct {
	prefix string
	store  AnchorAppender
}

// NewAnchorService creates a new AnchorService
func NewAnchorService(prefix string, store AnchorAppender) *AnchorService {
	return &AnchorService{
		prefix: prefix,
		store:  store,
	}
}

// Process appends the anchor record for tx
func (s *AnchorService) Process(ctx context.Context, tx *models.LedgerTransaction) error {
	record, err := NewAnchorRecord(tx, s.prefix)
	if err != nil {
		return err
	}

	if err := s.store.AddAnchor(ctx, record); err != nil {
		return fmt.Errorf("failed to append anchor record %d: %w", record.TransactionNumber, err)
	}

	slog.Info("Anchor transaction found",
		"transaction_number", record.TransactionNumber,
		"tx_hash", tx.Hash,
		"block_height", record.TransactionTime,
		"writer", record.Writer,
	)
	debug.PrintAnchorRecord(record)

	metrics.AnchorsIngested.Inc()
	metrics.LastTransactionNumber.Set(float64(record.TransactionNumber))
	return nil
}

// Name returns the service name
func (s *AnchorService) Name() string {
	return "AnchorService"
}

// NewAnchorRecord maps an accepted ledger transaction onto its anchor log entry
func NewAnchorRecord(tx *models.LedgerTransaction, prefix string) (*models.AnchorRecord, error) {
	if tx.Metadata == nil {
		return nil, errors.New("transaction has no metadata")
	}
	if len(tx.Inputs) == 0 {
		return nil, errors.New("transaction has no inputs")
	}

	return &models.AnchorRecord{
		TransactionNumber:   tx.TransactionNumber,
		TransactionTime:     tx.BlockHeight,
		TransactionTimeHash: tx.BlockHash,
		AnchorString:        strings.TrimPrefix(*tx.Metadata, prefix),
		TransactionFeePaid:  tx.Fee,
		Writer:              tx.Inputs[0].Address,
	}, nil
}
