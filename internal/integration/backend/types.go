package backend

import "time"

// Kind selects which ledger API the service reads from and submits to
type Kind string

const (
	// KindBlockfrost reads and submits through Blockfrost
	KindBlockfrost Kind = "blockfrost"
	// KindGraphQL reads and submits through cardano-graphql
	KindGraphQL Kind = "graphql"
	// KindSplit reads through Blockfrost and submits through a submit-api node
	KindSplit Kind = "split"
)

// ClientTimeoutConfig bounds a single HTTP exchange with the backend
type ClientTimeoutConfig struct {
	Timeout time.Duration
}

// ClientConfig carries everything needed to reach the configured backend
type ClientConfig struct {
	Kind              Kind
	BlockfrostURL     string
	BlockfrostProject string
	GraphQLURL        string
	SubmitURL         string
	MetadataLabel     string
	SpendThreshold    int64
	TimeoutConfig     ClientTimeoutConfig
}
