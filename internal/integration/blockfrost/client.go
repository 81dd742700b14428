// Package blockfrost implements ledger.Client against the Blockfrost REST API.
package blockfrost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"anchord/internal/ledger"
	"anchord/internal/models"
	"anchord/internal/txnumber"

	"github.com/go-resty/resty/v2"
)

const (
	backendName = "blockfrost"

	// utxoPageSize is the largest page the address endpoints serve
	utxoPageSize = 100

	lovelaceUnit = "lovelace"
)

// Config configures the Blockfrost client
type Config struct {
	URL            string
	ProjectID      string
	MetadataLabel  string
	SpendThreshold int64
	Timeout        time.Duration
}

// Client talks to one Blockfrost project
type Client struct {
	http           *resty.Client
	label          string
	spendThreshold int64
}

// New creates a Blockfrost client. Every request carries the project id header.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("blockfrost URL is empty, please provide a valid endpoint")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("blockfrost project id is empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("project_id", cfg.ProjectID).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	threshold := cfg.SpendThreshold
	if threshold == 0 {
		threshold = ledger.DefaultSpendThreshold
	}

	return &Client{
		http:           httpClient,
		label:          cfg.MetadataLabel,
		spendThreshold: threshold,
	}, nil
}

func (c *Client) Name() string {
	return backendName
}

type amount struct {
	Unit     string          `json:"unit"`
	Quantity ledger.Quantity `json:"quantity"`
}

func lovelace(amounts []amount) int64 {
	for _, a := range amounts {
		if a.Unit == lovelaceUnit {
			return a.Quantity.Int64()
		}
	}
	return 0
}

type block struct {
	Time          int64  `json:"time"`
	Height        *int64 `json:"height"`
	Hash          string `json:"hash"`
	Slot          *int64 `json:"slot"`
	Epoch         *int64 `json:"epoch"`
	Confirmations int64  `json:"confirmations"`
}

func (b *block) toModel() *models.Block {
	out := &models.Block{
		Hash:          b.Hash,
		Time:          b.Time,
		Confirmations: b.Confirmations,
	}
	if b.Height != nil {
		out.Height = *b.Height
	}
	if b.Slot != nil {
		out.Slot = *b.Slot
	}
	if b.Epoch != nil {
		out.Epoch = *b.Epoch
	}
	return out
}

// get performs a GET and decodes the JSON answer into out
func (c *Client) get(ctx context.Context, op, path string, query map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return ledger.NetworkError(backendName, op, err)
	}
	if resp.IsError() {
		return ledger.StatusError(backendName, op, resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return ledger.ApplicationError(backendName, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) GetTip(ctx context.Context) (*models.Block, error) {
	var b block
	if err := c.get(ctx, "get_tip", "/blocks/latest", nil, &b); err != nil {
		return nil, err
	}
	return b.toModel(), nil
}

func (c *Client) GetBlock(ctx context.Context, hash string) (*models.Block, error) {
	var b block
	if err := c.get(ctx, "get_block", "/blocks/"+hash, nil, &b); err != nil {
		return nil, err
	}
	return b.toModel(), nil
}

type addressUTXO struct {
	Address     string   `json:"address"`
	TxHash      string   `json:"tx_hash"`
	OutputIndex uint32   `json:"output_index"`
	Amount      []amount `json:"amount"`
}

func (c *Client) GetUTXOs(ctx context.Context, address string) ([]models.UTXO, error) {
	var utxos []models.UTXO
	for page := 1; ; page++ {
		var batch []addressUTXO
		err := c.get(ctx, "get_utxos", "/addresses/"+address+"/utxos", map[string]string{
			"page":  strconv.Itoa(page),
			"count": strconv.Itoa(utxoPageSize),
			"order": "asc",
		}, &batch)
		if errors.Is(err, ledger.ErrNotFound) {
			// an address that never received funds is unknown to the index
			break
		}
		if err != nil {
			return nil, err
		}

		for _, u := range batch {
			utxos = append(utxos, models.UTXO{
				Address:     u.Address,
				Amount:      lovelace(u.Amount),
				TxHash:      u.TxHash,
				OutputIndex: u.OutputIndex,
			})
		}
		if len(batch) < utxoPageSize {
			break
		}
	}
	return ledger.SelectUTXOs(utxos, c.spendThreshold), nil
}

func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	var info struct {
		Amount []amount `json:"amount"`
	}
	err := c.get(ctx, "get_balance", "/addresses/"+address, nil, &info)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lovelace(info.Amount), nil
}

type transaction struct {
	Hash        string          `json:"hash"`
	Block       string          `json:"block"`
	BlockHeight int64           `json:"block_height"`
	Index       int64           `json:"index"`
	Fees        ledger.Quantity `json:"fees"`
}

type txUTXOs struct {
	Inputs []struct {
		Address     string   `json:"address"`
		Amount      []amount `json:"amount"`
		TxHash      string   `json:"tx_hash"`
		OutputIndex uint32   `json:"output_index"`
	} `json:"inputs"`
	Outputs []struct {
		Address string   `json:"address"`
		Amount  []amount `json:"amount"`
	} `json:"outputs"`
}

type txMetadata struct {
	Label        string          `json:"label"`
	JSONMetadata json.RawMessage `json:"json_metadata"`
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error) {
	var tx transaction
	if err := c.get(ctx, "get_transaction", "/txs/"+hash, nil, &tx); err != nil {
		return nil, err
	}

	var b block
	if err := c.get(ctx, "get_transaction", "/blocks/"+tx.Block, nil, &b); err != nil {
		return nil, err
	}

	var metadata []txMetadata
	if err := c.get(ctx, "get_transaction", "/txs/"+hash+"/metadata", nil, &metadata); err != nil {
		return nil, err
	}

	var utxos txUTXOs
	if err := c.get(ctx, "get_transaction", "/txs/"+hash+"/utxos", nil, &utxos); err != nil {
		return nil, err
	}

	number, err := txnumber.Encode(tx.BlockHeight, tx.Index)
	if err != nil {
		return nil, ledger.ApplicationError(backendName, "get_transaction", err)
	}

	out := &models.LedgerTransaction{
		Hash:              tx.Hash,
		Fee:               tx.Fees.Int64(),
		BlockHash:         tx.Block,
		BlockHeight:       tx.BlockHeight,
		BlockIndex:        tx.Index,
		Confirmations:     b.Confirmations,
		TransactionNumber: number,
	}
	for _, m := range metadata {
		if m.Label == c.label {
			out.Metadata = ledger.DecodeMetadata(m.JSONMetadata)
			break
		}
	}
	for _, in := range utxos.Inputs {
		out.Inputs = append(out.Inputs, models.Input{
			Address:       in.Address,
			Amount:        lovelace(in.Amount),
			SourceTxHash:  in.TxHash,
			SourceTxIndex: in.OutputIndex,
		})
	}
	for _, o := range utxos.Outputs {
		out.Outputs = append(out.Outputs, models.Output{
			Address: o.Address,
			Amount:  lovelace(o.Amount),
		})
	}
	return out, nil
}

func (c *Client) GetMetadataPage(ctx context.Context, label string, page, batchSize int) ([]models.MetadataEntry, error) {
	var items []struct {
		TxHash       string          `json:"tx_hash"`
		JSONMetadata json.RawMessage `json:"json_metadata"`
	}
	err := c.get(ctx, "get_metadata_page", "/metadata/txs/labels/"+label, map[string]string{
		"page":  strconv.Itoa(page),
		"count": strconv.Itoa(batchSize),
		"order": "desc",
	}, &items)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]models.MetadataEntry, 0, len(items))
	for _, item := range items {
		entry := models.MetadataEntry{TxHash: item.TxHash}
		if m := ledger.DecodeMetadata(item.JSONMetadata); m != nil {
			entry.Metadata = *m
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) GetProtocolParameters(ctx context.Context) (*models.ProtocolParameters, error) {
	var p struct {
		Epoch       int64           `json:"epoch"`
		MinFeeA     int64           `json:"min_fee_a"`
		MinFeeB     int64           `json:"min_fee_b"`
		MaxTxSize   int64           `json:"max_tx_size"`
		MaxValSize  ledger.Quantity `json:"max_val_size"`
		KeyDeposit  ledger.Quantity `json:"key_deposit"`
		PoolDeposit ledger.Quantity `json:"pool_deposit"`
		MinUTxO     ledger.Quantity `json:"min_utxo"`
	}
	if err := c.get(ctx, "get_protocol_parameters", "/epochs/latest/parameters", nil, &p); err != nil {
		return nil, err
	}
	return &models.ProtocolParameters{
		Epoch:       p.Epoch,
		MinFeeA:     p.MinFeeA,
		MinFeeB:     p.MinFeeB,
		MaxTxSize:   p.MaxTxSize,
		MaxValSize:  p.MaxValSize.Int64(),
		KeyDeposit:  p.KeyDeposit.Int64(),
		PoolDeposit: p.PoolDeposit.Int64(),
		MinUTxO:     p.MinUTxO.Int64(),
	}, nil
}

func (c *Client) Submit(ctx context.Context, signedTx []byte) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/cbor").
		SetBody(signedTx).
		Post("/tx/submit")
	if err != nil {
		return "", ledger.NetworkError(backendName, "submit", err)
	}
	if resp.IsError() {
		return "", ledger.StatusError(backendName, "submit", resp.StatusCode(), resp.String())
	}

	var txID string
	if err := json.Unmarshal(resp.Body(), &txID); err != nil {
		return "", ledger.ApplicationError(backendName, "submit", fmt.Errorf("failed to decode transaction id: %w", err))
	}
	return txID, nil
}

var _ ledger.Client = (*Client)(nil)
