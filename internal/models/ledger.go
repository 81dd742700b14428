package models

import "encoding/hex"

// Input is a spent output referenced by a ledger transaction
type Input struct {
	Address       string `json:"address" bson:"address"`
	Amount        int64  `json:"amount" bson:"amount"`
	SourceTxHash  string `json:"sourceTxHash,omitempty" bson:"sourceTxHash,omitempty"`
	SourceTxIndex uint32 `json:"sourceTxIndex" bson:"sourceTxIndex"`
}

// Output is a value-carrying output created by a ledger transaction
type Output struct {
	Address string `json:"address" bson:"address"`
	Amount  int64  `json:"amount" bson:"amount"`
}

// LedgerTransaction is a transaction as fetched from the ledger backend.
// TransactionNumber is derived from (BlockHeight, BlockIndex).
type LedgerTransaction struct {
	Hash              string   `json:"hash" bson:"hash"`
	Fee               int64    `json:"fees" bson:"fees"`
	BlockHash         string   `json:"blockHash" bson:"blockHash"`
	BlockHeight       int64    `json:"blockHeight" bson:"blockHeight"`
	BlockIndex        int64    `json:"index" bson:"index"`
	Metadata          *string  `json:"metadata" bson:"metadata"`
	Confirmations     int64    `json:"confirmations" bson:"confirmations"`
	TransactionNumber int64    `json:"transactionNumber" bson:"transactionNumber"`
	Inputs            []Input  `json:"inputs" bson:"inputs"`
	Outputs           []Output `json:"outputs" bson:"outputs"`
}

// UTXO is an unspent output owned by the wallet
type UTXO struct {
	Address     string `json:"address"`
	Amount      int64  `json:"amount"`
	TxHash      string `json:"txHash"`
	OutputIndex uint32 `json:"outputIndex"`
}

// Block is a ledger block header; the tip is the latest one
type Block struct {
	Hash          string `json:"hash"`
	Height        int64  `json:"height"`
	Slot          int64  `json:"slot"`
	Epoch         int64  `json:"epoch"`
	Time          int64  `json:"time"`
	Confirmations int64  `json:"confirmations"`
}

// ProtocolParameters holds the ledger fee model and size limits
type ProtocolParameters struct {
	Epoch       int64 `json:"epoch"`
	MinFeeA     int64 `json:"minFeeA"`
	MinFeeB     int64 `json:"minFeeB"`
	MaxTxSize   int64 `json:"maxTxSize"`
	MaxValSize  int64 `json:"maxValSize"`
	KeyDeposit  int64 `json:"keyDeposit"`
	PoolDeposit int64 `json:"poolDeposit"`
	MinUTxO     int64 `json:"minUtxo"`
}

// MetadataEntry is one item of a metadata-label page
type MetadataEntry struct {
	TxHash   string `json:"txHash"`
	Metadata string `json:"metadata,omitempty"`
}

// SignedTransaction is a built, signed, serialized transaction ready for submission
type SignedTransaction struct {
	Hash string
	Fee  int64
	CBOR []byte
}

// CBORHex returns the serialized transaction as a hex string
func (t *SignedTransaction) CBORHex() string {
	return hex.EncodeToString(t.CBOR)
}
