package models

import "encoding/json"

// TransactionsResponse is returned by GET /transactions
type TransactionsResponse struct {
	Transactions     []AnchorRecord `json:"transactions"`
	MoreTransactions bool           `json:"moreTransactions"`
}

// BlockchainTime is returned by GET /time
type BlockchainTime struct {
	Time int64  `json:"time"`
	Hash string `json:"hash"`
}

// WriteRequest is the body of POST /transactions
type WriteRequest struct {
	AnchorString string `json:"anchorString" validate:"required"`
}

// ServiceVersion is returned by GET /version
type ServiceVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// TransactionFee is returned by GET /fee/{blockchainTime}
type TransactionFee struct {
	NormalizedTransactionFee int64 `json:"normalizedTransactionFee"`
}

// WalletBalance is returned by GET /monitors/balance
type WalletBalance struct {
	WalletBalanceInAda json.Number `json:"walletBalanceInAda"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
