// Package cardanographql implements ledger.Client against a cardano-graphql
// endpoint. Transactions are submitted through its submitTransaction mutation.
package cardanographql

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"anchord/internal/ledger"
	"anchord/internal/models"
	"anchord/internal/txnumber"

	"github.com/machinebox/graphql"
)

const backendName = "graphql"

// Config configures the GraphQL client
type Config struct {
	URL            string
	MetadataLabel  string
	SpendThreshold int64
	Timeout        time.Duration
}

// Client queries one cardano-graphql server
type Client struct {
	gql            *graphql.Client
	label          string
	spendThreshold int64
}

// New creates a GraphQL client
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("graphql URL is empty, please provide a valid endpoint")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &statusTransport{next: http.DefaultTransport},
	}

	threshold := cfg.SpendThreshold
	if threshold == 0 {
		threshold = ledger.DefaultSpendThreshold
	}

	return &Client{
		gql:            graphql.NewClient(cfg.URL, graphql.WithHTTPClient(httpClient)),
		label:          cfg.MetadataLabel,
		spendThreshold: threshold,
	}, nil
}

func (c *Client) Name() string {
	return backendName
}

// errServerStatus marks answers the server could not produce
type errServerStatus struct {
	status int
}

func (e *errServerStatus) Error() string {
	return fmt.Sprintf("server returned status %d", e.status)
}

// statusTransport turns 5xx and 429 answers into transport failures so they
// classify like connection errors
type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, &errServerStatus{status: resp.StatusCode}
	}
	return resp, nil
}

// run executes a query and classifies the failure
func (c *Client) run(ctx context.Context, op, query string, vars map[string]any, out any) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}

	if err := c.gql.Run(ctx, req, out); err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			lerr := ledger.NetworkError(backendName, op, err)
			var statusErr *errServerStatus
			if errors.As(err, &statusErr) {
				lerr.StatusCode = statusErr.status
			}
			return lerr
		}
		return ledger.ApplicationError(backendName, op, err)
	}
	return nil
}

type block struct {
	Number   int64  `json:"number"`
	Hash     string `json:"hash"`
	SlotNo   int64  `json:"slotNo"`
	EpochNo  int64  `json:"epochNo"`
	ForgedAt string `json:"forgedAt"`
}

func (b *block) toModel(tipNumber int64) *models.Block {
	out := &models.Block{
		Hash:   b.Hash,
		Height: b.Number,
		Slot:   b.SlotNo,
		Epoch:  b.EpochNo,
	}
	if t, err := time.Parse(time.RFC3339, b.ForgedAt); err == nil {
		out.Time = t.Unix()
	}
	if tipNumber >= b.Number {
		out.Confirmations = tipNumber - b.Number
	}
	return out
}

func (c *Client) tip(ctx context.Context, op string) (*block, error) {
	var resp struct {
		Cardano struct {
			Tip block `json:"tip"`
		} `json:"cardano"`
	}
	if err := c.run(ctx, op, tipQuery, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Cardano.Tip, nil
}

func (c *Client) GetTip(ctx context.Context) (*models.Block, error) {
	tip, err := c.tip(ctx, "get_tip")
	if err != nil {
		return nil, err
	}
	return tip.toModel(tip.Number), nil
}

func (c *Client) GetBlock(ctx context.Context, hash string) (*models.Block, error) {
	tip, err := c.tip(ctx, "get_block")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Blocks []block `json:"blocks"`
	}
	if err := c.run(ctx, "get_block", blockQuery, map[string]any{"hash": hash}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Blocks) == 0 {
		return nil, ledger.ApplicationError(backendName, "get_block", ledger.ErrNotFound)
	}
	return resp.Blocks[0].toModel(tip.Number), nil
}

func (c *Client) GetUTXOs(ctx context.Context, address string) ([]models.UTXO, error) {
	var resp struct {
		UTXOs []struct {
			Address string          `json:"address"`
			Index   uint32          `json:"index"`
			TxHash  string          `json:"txHash"`
			Value   ledger.Quantity `json:"value"`
		} `json:"utxos"`
	}
	if err := c.run(ctx, "get_utxos", utxosQuery, map[string]any{"address": address}, &resp); err != nil {
		return nil, err
	}

	utxos := make([]models.UTXO, 0, len(resp.UTXOs))
	for _, u := range resp.UTXOs {
		utxos = append(utxos, models.UTXO{
			Address:     u.Address,
			Amount:      u.Value.Int64(),
			TxHash:      u.TxHash,
			OutputIndex: u.Index,
		})
	}
	return ledger.SelectUTXOs(utxos, c.spendThreshold), nil
}

func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	var resp struct {
		Aggregate struct {
			Aggregate struct {
				Sum struct {
					Value ledger.Quantity `json:"value"`
				} `json:"sum"`
			} `json:"aggregate"`
		} `json:"utxos_aggregate"`
	}
	if err := c.run(ctx, "get_balance", balanceQuery, map[string]any{"address": address}, &resp); err != nil {
		return 0, err
	}
	return resp.Aggregate.Aggregate.Sum.Value.Int64(), nil
}

type metadatum struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error) {
	var resp struct {
		Cardano struct {
			Tip struct {
				Number int64 `json:"number"`
			} `json:"tip"`
		} `json:"cardano"`
		Transactions []struct {
			Fee        ledger.Quantity `json:"fee"`
			Hash       string          `json:"hash"`
			BlockIndex int64           `json:"blockIndex"`
			Metadata   []metadatum     `json:"metadata"`
			Block      struct {
				Number int64  `json:"number"`
				Hash   string `json:"hash"`
			} `json:"block"`
			Inputs []struct {
				Address       string          `json:"address"`
				Value         ledger.Quantity `json:"value"`
				SourceTxHash  string          `json:"sourceTxHash"`
				SourceTxIndex uint32          `json:"sourceTxIndex"`
			} `json:"inputs"`
			Outputs []struct {
				Address string          `json:"address"`
				Value   ledger.Quantity `json:"value"`
			} `json:"outputs"`
		} `json:"transactions"`
	}
	if err := c.run(ctx, "get_transaction", transactionQuery, map[string]any{"hash": hash}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Transactions) == 0 {
		return nil, ledger.ApplicationError(backendName, "get_transaction", ledger.ErrNotFound)
	}

	tx := resp.Transactions[0]
	number, err := txnumber.Encode(tx.Block.Number, tx.BlockIndex)
	if err != nil {
		return nil, ledger.ApplicationError(backendName, "get_transaction", err)
	}

	out := &models.LedgerTransaction{
		Hash:              tx.Hash,
		Fee:               tx.Fee.Int64(),
		BlockHash:         tx.Block.Hash,
		BlockHeight:       tx.Block.Number,
		BlockIndex:        tx.BlockIndex,
		TransactionNumber: number,
	}
	if tip := resp.Cardano.Tip.Number; tip >= tx.Block.Number {
		out.Confirmations = tip - tx.Block.Number
	}
	for _, m := range tx.Metadata {
		if m.Key == c.label {
			out.Metadata = ledger.DecodeMetadata(m.Value)
			break
		}
	}
	for _, in := range tx.Inputs {
		out.Inputs = append(out.Inputs, models.Input{
			Address:       in.Address,
			Amount:        in.Value.Int64(),
			SourceTxHash:  in.SourceTxHash,
			SourceTxIndex: in.SourceTxIndex,
		})
	}
	for _, o := range tx.Outputs {
		out.Outputs = append(out.Outputs, models.Output{
			Address: o.Address,
			Amount:  o.Value.Int64(),
		})
	}
	return out, nil
}

func (c *Client) GetMetadataPage(ctx context.Context, label string, page, batchSize int) ([]models.MetadataEntry, error) {
	var resp struct {
		Transactions []struct {
			Hash     string      `json:"hash"`
			Metadata []metadatum `json:"metadata"`
		} `json:"transactions"`
	}
	vars := map[string]any{
		"label":  label,
		"limit":  batchSize,
		"offset": batchSize * (page - 1),
	}
	if err := c.run(ctx, "get_metadata_page", metadataPageQuery, vars, &resp); err != nil {
		return nil, err
	}

	entries := make([]models.MetadataEntry, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		entry := models.MetadataEntry{TxHash: tx.Hash}
		for _, m := range tx.Metadata {
			if m.Key != label {
				continue
			}
			if decoded := ledger.DecodeMetadata(m.Value); decoded != nil {
				entry.Metadata = *decoded
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) GetProtocolParameters(ctx context.Context) (*models.ProtocolParameters, error) {
	var resp struct {
		Epochs []struct {
			Number         int64 `json:"number"`
			ProtocolParams struct {
				MinFeeA      int64           `json:"minFeeA"`
				MinFeeB      int64           `json:"minFeeB"`
				MaxTxSize    int64           `json:"maxTxSize"`
				MaxValSize   ledger.Quantity `json:"maxValSize"`
				KeyDeposit   ledger.Quantity `json:"keyDeposit"`
				PoolDeposit  ledger.Quantity `json:"poolDeposit"`
				MinUTxOValue ledger.Quantity `json:"minUTxOValue"`
			} `json:"protocolParams"`
		} `json:"epochs"`
	}
	if err := c.run(ctx, "get_protocol_parameters", protocolParametersQuery, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Epochs) == 0 {
		return nil, ledger.ApplicationError(backendName, "get_protocol_parameters", ledger.ErrNotFound)
	}

	e := resp.Epochs[0]
	return &models.ProtocolParameters{
		Epoch:       e.Number,
		MinFeeA:     e.ProtocolParams.MinFeeA,
		MinFeeB:     e.ProtocolParams.MinFeeB,
		MaxTxSize:   e.ProtocolParams.MaxTxSize,
		MaxValSize:  e.ProtocolParams.MaxValSize.Int64(),
		KeyDeposit:  e.ProtocolParams.KeyDeposit.Int64(),
		PoolDeposit: e.ProtocolParams.PoolDeposit.Int64(),
		MinUTxO:     e.ProtocolParams.MinUTxOValue.Int64(),
	}, nil
}

func (c *Client) Submit(ctx context.Context, signedTx []byte) (string, error) {
	var resp struct {
		SubmitTransaction struct {
			Hash string `json:"hash"`
		} `json:"submitTransaction"`
	}
	vars := map[string]any{"transaction": hex.EncodeToString(signedTx)}
	if err := c.run(ctx, "submit", submitMutation, vars, &resp); err != nil {
		return "", err
	}
	return resp.SubmitTransaction.Hash, nil
}

var _ ledger.Client = (*Client)(nil)
