// Package submitapi posts signed transactions to a cardano-submit-api endpoint.
package submitapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"anchord/internal/ledger"

	"github.com/go-resty/resty/v2"
)

const backendName = "submit-api"

// Client submits raw CBOR transactions
type Client struct {
	http *resty.Client
	url  string
}

// New creates a submit-API client for the full submit URL
// (for example http://localhost:8090/api/submit/tx)
func New(url string, timeout time.Duration) (*Client, error) {
	if url == "" {
		return nil, errors.New("submit API URL is empty, please provide a valid endpoint")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: resty.New().SetTimeout(timeout),
		url:  url,
	}, nil
}

// Submit posts signedTx and returns the transaction id the endpoint answers with
func (c *Client) Submit(ctx context.Context, signedTx []byte) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/cbor").
		SetBody(signedTx).
		Post(c.url)
	if err != nil {
		return "", ledger.NetworkError(backendName, "submit", err)
	}
	if resp.IsError() {
		return "", ledger.StatusError(backendName, "submit", resp.StatusCode(), resp.String())
	}

	// the id comes back as a JSON string, some deployments send it bare
	var txID string
	if err := json.Unmarshal(resp.Body(), &txID); err != nil {
		txID = strings.TrimSpace(resp.String())
	}
	return txID, nil
}
