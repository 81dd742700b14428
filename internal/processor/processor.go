// Package processor is the service facade the HTTP layer calls into. It reads
// the anchor log, reports ledger time and wallet balance, forwards writes and
// gates startup on the stored schema version.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"anchord/internal/apperr"
	"anchord/internal/ledger"
	"anchord/internal/metrics"
	"anchord/internal/models"
	"anchord/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/mod/semver"
)

const (
	// DatabaseVersion is the schema version this build reads and writes
	DatabaseVersion = "1.0.0"

	// ServiceName is reported by the version endpoint
	ServiceName = "anchord"

	lovelacePerAda = 1_000_000
)

// Version is overridden at link time
var Version = "0.1.0"

// Ledger is the part of the ledger client the facade reads
type Ledger interface {
	GetTip(ctx context.Context) (*models.Block, error)
	GetBlock(ctx context.Context, hash string) (*models.Block, error)
	GetBalance(ctx context.Context, address string) (int64, error)
}

// Writer anchors a payload on the ledger
type Writer interface {
	Write(ctx context.Context, anchorString string) (string, error)
}

// Store is the persistence the facade needs
type Store interface {
	storage.AnchorStore
	storage.ServiceStateStore
}

// Processor serves the read and write operations of the service
type Processor struct {
	ledger  Ledger
	writer  Writer
	store   Store
	address string
}

// New creates a Processor. address is the wallet whose balance is monitored.
func New(ledger Ledger, writer Writer, store Store, address string) *Processor {
	return &Processor{
		ledger:  ledger,
		writer:  writer,
		store:   store,
		address: address,
	}
}

// Initialize checks the stored schema version and records the current one.
// A stored version newer than DatabaseVersion is refused.
func (p *Processor) Initialize(ctx context.Context) error {
	state, err := p.store.GetServiceState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read service state: %w", err)
	}

	if state != nil && state.DatabaseVersion == DatabaseVersion {
		return nil
	}

	if state != nil && state.DatabaseVersion != "" {
		actual := "v" + state.DatabaseVersion
		if !semver.IsValid(actual) {
			return fmt.Errorf("stored database version %q is not a valid version", state.DatabaseVersion)
		}
		if semver.Compare("v"+DatabaseVersion, actual) < 0 {
			slog.Error("Downgrading database is not allowed",
				"from", state.DatabaseVersion,
				"to", DatabaseVersion,
			)
			return apperr.New(http.StatusInternalServerError, apperr.CodeDatabaseDowngradeNotAllowed,
				fmt.Errorf("database version %s is newer than %s", state.DatabaseVersion, DatabaseVersion))
		}
	}

	from := ""
	if state != nil {
		from = state.DatabaseVersion
	}
	slog.Warn("Upgrading database", "from", from, "to", DatabaseVersion)

	start := time.Now()
	if err := p.store.PutServiceState(ctx, &models.ServiceState{
		DatabaseVersion: DatabaseVersion,
		UpdatedAt:       time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to write service state: %w", err)
	}

	slog.Warn("Database upgraded", "duration", time.Since(start))
	return nil
}

// Transactions returns the anchor log, or the part of it after since.
// since and hash must be given together; when the anchor numbered since is
// known its time hash must equal hash.
func (p *Processor) Transactions(ctx context.Context, since *int64, hash string) (*models.TransactionsResponse, error) {
	if since != nil {
		slog.Info("Transactions request", "since", *since, "transaction_time_hash", hash)
	} else {
		slog.Info("Transactions request")
	}

	if (since == nil) != (hash == "") {
		return nil, apperr.BadRequest(apperr.CodeInvalidTransactionNumberOrTimeHash)
	}

	var (
		records []models.AnchorRecord
		err     error
	)
	if since == nil {
		records, err = p.store.ListAnchors(ctx)
	} else {
		if err := p.checkTimeHash(ctx, *since, hash); err != nil {
			return nil, err
		}
		records, err = p.store.ListAnchorsLaterThan(ctx, *since, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read anchors: %w", err)
	}

	if records == nil {
		records = []models.AnchorRecord{}
	}
	return &models.TransactionsResponse{
		Transactions:     records,
		MoreTransactions: false,
	}, nil
}

func (p *Processor) checkTimeHash(ctx context.Context, since int64, hash string) error {
	record, err := p.store.GetAnchor(ctx, since)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read anchor %d: %w", since, err)
	}
	if record.TransactionTimeHash != hash {
		return apperr.BadRequest(apperr.CodeInvalidTransactionNumberOrTimeHash)
	}
	return nil
}

// Time returns the ledger tip, or the block identified by hash
func (p *Processor) Time(ctx context.Context, hash string) (*models.BlockchainTime, error) {
	if hash == "" {
		tip, err := p.ledger.GetTip(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get ledger tip: %w", err)
		}
		return &models.BlockchainTime{Time: tip.Height, Hash: tip.Hash}, nil
	}

	block, err := p.ledger.GetBlock(ctx, hash)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, apperr.New(http.StatusNotFound, "", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block %s: %w", hash, err)
	}
	return &models.BlockchainTime{Time: block.Height, Hash: hash}, nil
}

// Write anchors anchorString
func (p *Processor) Write(ctx context.Context, anchorString string) error {
	_, err := p.writer.Write(ctx, anchorString)
	return err
}

// WriterLock reports the value time lock of this node; none is ever held
func (p *Processor) WriterLock(ctx context.Context) (any, error) {
	return nil, apperr.NotFound(apperr.CodeValueTimeLockNotFound)
}

// NormalizedFee returns the normalized fee at blockchainTime, which is constant
func (p *Processor) NormalizedFee(ctx context.Context, blockchainTime string) (*models.TransactionFee, error) {
	return &models.TransactionFee{NormalizedTransactionFee: 1}, nil
}

// ServiceVersion returns the service name and version
func (p *Processor) ServiceVersion() models.ServiceVersion {
	return models.ServiceVersion{Name: ServiceName, Version: Version}
}

// WalletBalance returns the wallet balance in ADA
func (p *Processor) WalletBalance(ctx context.Context) (*models.WalletBalance, error) {
	lovelace, err := p.ledger.GetBalance(ctx, p.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet balance: %w", err)
	}
	metrics.WalletBalance.Set(float64(lovelace))

	ada := decimal.NewFromInt(lovelace).Div(decimal.NewFromInt(lovelacePerAda))
	slog.Info("Wallet balance", "address", p.address, "lovelace", lovelace)

	return &models.WalletBalance{WalletBalanceInAda: json.Number(ada.String())}, nil
}
