// Package config loads the service configuration from an optional YAML file,
// a .env file and ANCHORD_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"anchord/internal/integration/backend"
	"anchord/internal/ledger"
	"anchord/internal/ledger/retry"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreDriver selects the persistence backend
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
	StoreMongo    StoreDriver = "mongo"
	StoreMemory   StoreDriver = "memory"
)

type LogConfig struct {
	Level           string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format          string `yaml:"format" validate:"oneof=text json"`
	LogRequestError bool   `yaml:"log_request_error"`
}

type StoreConfig struct {
	Driver      StoreDriver `yaml:"driver" validate:"oneof=postgres sqlite mongo memory"`
	PostgresURL string      `yaml:"postgres_url" validate:"required_if=Driver postgres"`
	SQLitePath  string      `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	MongoURI    string      `yaml:"mongo_uri" validate:"required_if=Driver mongo"`
	MongoDB     string      `yaml:"mongo_database" validate:"required_if=Driver mongo"`
}

type BackendConfig struct {
	Kind              backend.Kind  `yaml:"kind" validate:"oneof=blockfrost graphql split"`
	BlockfrostURL     string        `yaml:"blockfrost_url" validate:"required_unless=Kind graphql"`
	BlockfrostProject string        `yaml:"blockfrost_project_id"`
	GraphQLURL        string        `yaml:"graphql_url" validate:"required_if=Kind graphql"`
	SubmitURL         string        `yaml:"submit_url" validate:"required_if=Kind split"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
}

type LedgerConfig struct {
	Network          string `yaml:"network" validate:"oneof=mainnet preprod preview"`
	Mnemonic         string `yaml:"mnemonic"`
	MetadataLabel    uint64 `yaml:"metadata_label"`
	Prefix           string `yaml:"transaction_prefix" validate:"required"`
	MinConfirmations int64  `yaml:"min_confirmations" validate:"gte=0"`
	PollSeconds      int    `yaml:"poll_seconds" validate:"gte=0"`
	SpendThreshold   int64  `yaml:"utxo_spend_threshold" validate:"gt=0"`
	WriteReserve     int64  `yaml:"write_reserve" validate:"gte=0"`
	FetchWorkers     int    `yaml:"fetch_workers" validate:"gte=1,lte=32"`
}

type EventsConfig struct {
	AMQPURL    string `yaml:"amqp_url" validate:"omitempty,url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Config is the complete service configuration
type Config struct {
	Port    int                  `yaml:"port" validate:"gt=0,lte=65535"`
	Log     LogConfig            `yaml:"log"`
	Store   StoreConfig          `yaml:"store"`
	Backend BackendConfig        `yaml:"backend"`
	Ledger  LedgerConfig         `yaml:"ledger"`
	Breaker ledger.BreakerConfig `yaml:"breaker"`
	Retry   retry.Config         `yaml:"retry"`
	Events  EventsConfig         `yaml:"events"`
}

// Default returns the configuration used before any file or variable is read
func Default() *Config {
	return &Config{
		Port: 3000,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Driver:     StoreSQLite,
			SQLitePath: "data/anchord.db",
			MongoDB:    "anchord",
		},
		Backend: BackendConfig{
			Kind:          backend.KindBlockfrost,
			BlockfrostURL: "https://cardano-preprod.blockfrost.io/api/v0",
			Timeout:       30 * time.Second,
		},
		Ledger: LedgerConfig{
			Network:          "preprod",
			MetadataLabel:    1,
			Prefix:           "sidetree:",
			MinConfirmations: 6,
			PollSeconds:      60,
			SpendThreshold:   1_500_000,
			WriteReserve:     1_000_000,
			FetchWorkers:     4,
		},
		Breaker: ledger.DefaultBreakerConfig(),
		Retry:   retry.DefaultConfig(),
		Events: EventsConfig{
			Exchange:   "anchord.events",
			RoutingKey: "anchord",
		},
	}
}

// Load reads .env, the YAML file named by ANCHORD_CONFIG_FILE (if any) and
// the environment, then validates the result
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	cfg := Default()

	if path := os.Getenv("ANCHORD_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("ANCHORD_PORT", c.Port)

	c.Log.Level = getEnv("ANCHORD_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("ANCHORD_LOG_FORMAT", c.Log.Format)
	c.Log.LogRequestError = getEnvAsBool("ANCHORD_LOG_REQUEST_ERROR", c.Log.LogRequestError)

	c.Store.Driver = StoreDriver(getEnv("ANCHORD_STORE_DRIVER", string(c.Store.Driver)))
	c.Store.PostgresURL = getEnv("ANCHORD_DATABASE_URL", c.Store.PostgresURL)
	c.Store.SQLitePath = getEnv("ANCHORD_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.MongoURI = getEnv("ANCHORD_MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDB = getEnv("ANCHORD_MONGO_DATABASE", c.Store.MongoDB)

	c.Backend.Kind = backend.Kind(getEnv("ANCHORD_BACKEND", string(c.Backend.Kind)))
	c.Backend.BlockfrostURL = getEnv("ANCHORD_BLOCKFROST_URL", c.Backend.BlockfrostURL)
	c.Backend.BlockfrostProject = getEnv("ANCHORD_BLOCKFROST_PROJECT_ID", c.Backend.BlockfrostProject)
	c.Backend.GraphQLURL = getEnv("ANCHORD_GRAPHQL_URL", c.Backend.GraphQLURL)
	c.Backend.SubmitURL = getEnv("ANCHORD_SUBMIT_URL", c.Backend.SubmitURL)
	c.Backend.Timeout = getEnvAsDuration("ANCHORD_BACKEND_TIMEOUT", c.Backend.Timeout)

	c.Ledger.Network = getEnv("ANCHORD_NETWORK", c.Ledger.Network)
	c.Ledger.Mnemonic = getEnv("ANCHORD_WALLET_MNEMONIC", c.Ledger.Mnemonic)
	c.Ledger.MetadataLabel = getEnvAsUint("ANCHORD_METADATA_LABEL", c.Ledger.MetadataLabel)
	c.Ledger.Prefix = getEnv("ANCHORD_TRANSACTION_PREFIX", c.Ledger.Prefix)
	c.Ledger.MinConfirmations = getEnvAsInt64("ANCHORD_MIN_CONFIRMATIONS", c.Ledger.MinConfirmations)
	c.Ledger.PollSeconds = getEnvAsInt("ANCHORD_POLL_SECONDS", c.Ledger.PollSeconds)
	c.Ledger.SpendThreshold = getEnvAsInt64("ANCHORD_UTXO_SPEND_THRESHOLD", c.Ledger.SpendThreshold)
	c.Ledger.WriteReserve = getEnvAsInt64("ANCHORD_WRITE_RESERVE", c.Ledger.WriteReserve)
	c.Ledger.FetchWorkers = getEnvAsInt("ANCHORD_FETCH_WORKERS", c.Ledger.FetchWorkers)

	c.Breaker.Enabled = getEnvAsBool("ANCHORD_BREAKER_ENABLED", c.Breaker.Enabled)
	c.Breaker.ConsecutiveFailures = uint32(getEnvAsInt("ANCHORD_BREAKER_FAILURES", int(c.Breaker.ConsecutiveFailures)))
	c.Breaker.OpenTimeout = getEnvAsDuration("ANCHORD_BREAKER_OPEN_TIMEOUT", c.Breaker.OpenTimeout)

	c.Retry = retry.LoadConfig(c.Retry)

	c.Events.AMQPURL = getEnv("ANCHORD_AMQP_URL", c.Events.AMQPURL)
	c.Events.Exchange = getEnv("ANCHORD_AMQP_EXCHANGE", c.Events.Exchange)
}

// Validate checks that the configuration is consistent. Credentials (wallet
// mnemonic, Blockfrost project id) are checked by the commands that use them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PollInterval is the observer period; zero means passive
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ledger.PollSeconds) * time.Second
}

// MetadataLabelString is the label as the backends query it
func (c *Config) MetadataLabelString() string {
	return strconv.FormatUint(c.Ledger.MetadataLabel, 10)
}

// BackendClientConfig assembles the settings the backend builder needs
func (c *Config) BackendClientConfig() backend.ClientConfig {
	return backend.ClientConfig{
		Kind:              c.Backend.Kind,
		BlockfrostURL:     c.Backend.BlockfrostURL,
		BlockfrostProject: c.Backend.BlockfrostProject,
		GraphQLURL:        c.Backend.GraphQLURL,
		SubmitURL:         c.Backend.SubmitURL,
		MetadataLabel:     c.MetadataLabelString(),
		SpendThreshold:    c.Ledger.SpendThreshold,
		TimeoutConfig:     backend.ClientTimeoutConfig{Timeout: c.Backend.Timeout},
	}
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get bool from env
func getEnvAsBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int64 from env
func getEnvAsInt64(key string, defaultVal int64) int64 {
	val, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get uint64 from env
func getEnvAsUint(key string, defaultVal uint64) uint64 {
	val, err := strconv.ParseUint(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get duration from env ("750ms", "2s")
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}
