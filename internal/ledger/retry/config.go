package retry

import (
	"os"
	"strconv"
	"time"
)

// Config holds retry configuration for read calls made against the ledger backend
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// DefaultConfig keeps retries short so that a failing tick ends well within a poll period
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// LoadConfig overlays ANCHORD_RETRY_* environment variables onto base
func LoadConfig(base Config) Config {
	return Config{
		Enabled:      getEnvAsBool("ANCHORD_RETRY_ENABLED", base.Enabled),
		MaxRetries:   getEnvAsInt("ANCHORD_RETRY_MAX_RETRIES", base.MaxRetries),
		InitialDelay: getEnvAsDuration("ANCHORD_RETRY_INITIAL_DELAY", base.InitialDelay),
		MaxDelay:     getEnvAsDuration("ANCHORD_RETRY_MAX_DELAY", base.MaxDelay),
	}
}

// Helper: get bool from env
func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get duration from env ("750ms", "2s")
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
