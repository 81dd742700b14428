package backend

import (
	"context"
	"fmt"
	"log/slog"

	"anchord/internal/integration/blockfrost"
	"anchord/internal/integration/cardanographql"
	"anchord/internal/integration/submitapi"
	"anchord/internal/ledger"
	"anchord/internal/ledger/retry"
)

// LedgerBuilder assembles the ledger client from configuration
type LedgerBuilder struct {
	ClientConfig ClientConfig
	Retry        retry.Config
	Breaker      ledger.BreakerConfig
}

// Build will create the configured ledger.Client wrapped with retries and a circuit breaker
func (lb *LedgerBuilder) Build() (ledger.Client, error) {
	client, err := lb.newBackend()
	if err != nil {
		return nil, err
	}

	slog.Info("Ledger backend configured",
		"backend", client.Name(),
		"retry_enabled", lb.Retry.Enabled,
		"breaker_enabled", lb.Breaker.Enabled,
	)

	return ledger.NewResilient(client, retry.NewStrategy(lb.Retry), lb.Breaker), nil
}

// newBackend creates the bare client for the configured kind
func (lb *LedgerBuilder) newBackend() (ledger.Client, error) {
	cfg := lb.ClientConfig

	switch cfg.Kind {
	case KindBlockfrost, "":
		return lb.newBlockfrost()
	case KindGraphQL:
		return cardanographql.New(cardanographql.Config{
			URL:            cfg.GraphQLURL,
			MetadataLabel:  cfg.MetadataLabel,
			SpendThreshold: cfg.SpendThreshold,
			Timeout:        cfg.TimeoutConfig.Timeout,
		})
	case KindSplit:
		reader, err := lb.newBlockfrost()
		if err != nil {
			return nil, err
		}
		submitter, err := submitapi.New(cfg.SubmitURL, cfg.TimeoutConfig.Timeout)
		if err != nil {
			return nil, err
		}
		return &splitClient{Client: reader, submitter: submitter}, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Kind)
	}
}

func (lb *LedgerBuilder) newBlockfrost() (*blockfrost.Client, error) {
	cfg := lb.ClientConfig
	return blockfrost.New(blockfrost.Config{
		URL:            cfg.BlockfrostURL,
		ProjectID:      cfg.BlockfrostProject,
		MetadataLabel:  cfg.MetadataLabel,
		SpendThreshold: cfg.SpendThreshold,
		Timeout:        cfg.TimeoutConfig.Timeout,
	})
}

// splitClient reads through one backend and submits through another
type splitClient struct {
	ledger.Client
	submitter *submitapi.Client
}

func (s *splitClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	return s.submitter.Submit(ctx, signedTx)
}

func (s *splitClient) Name() string {
	return s.Client.Name() + "+submit-api"
}
