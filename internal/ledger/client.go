// Package ledger defines the capability interface every ledger backend
// implements, together with the helpers the backends share.
package ledger

import (
	"context"

	"anchord/internal/models"
)

// Client is the read/submit surface of a ledger backend
type Client interface {
	// GetTip returns the latest block
	GetTip(ctx context.Context) (*models.Block, error)

	// GetBlock returns the block with the given hash
	GetBlock(ctx context.Context, hash string) (*models.Block, error)

	// GetUTXOs returns unspent outputs of address ordered ascending by amount,
	// stopping once their sum covers the spend threshold
	GetUTXOs(ctx context.Context, address string) ([]models.UTXO, error)

	// GetBalance returns the lovelace balance of address
	GetBalance(ctx context.Context, address string) (int64, error)

	// GetTransaction returns a transaction with confirmations relative to the tip
	GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error)

	// GetMetadataPage returns a newest-first page of transactions tagged with label.
	// Pages are 1-indexed.
	GetMetadataPage(ctx context.Context, label string, page, batchSize int) ([]models.MetadataEntry, error)

	// GetProtocolParameters returns the current fee model and size limits
	GetProtocolParameters(ctx context.Context) (*models.ProtocolParameters, error)

	// Submit posts a signed transaction and returns its id
	Submit(ctx context.Context, signedTx []byte) (string, error)

	// Name identifies the backend in logs and metrics
	Name() string
}
