package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"lendledger/database"
	"lendledger/domain/entities"
	"lendledger/domain/services"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Upstream data sources
	SubgraphURL string
	RatesURL    string

	// HTTP API
	HTTPAddr       string
	RequestTimeout time.Duration

	// Discord notifications, disabled unless both are set
	DiscordToken     string
	DiscordChannelID string

	// Accrual policy
	LeadingGapPolicy services.LeadingGapPolicy
	SupplyRateMode   services.SupplyRateMode
	ReserveFactorBps int64

	// Tracked tokens
	Tokens []entities.Token

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		// A missing .env file is fine; the environment may be set directly
		_ = godotenv.Load()

		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NotificationsEnabled reports whether completed runs should be posted to Discord
func (c *Config) NotificationsEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}

// ReconcilerConfig returns the accrual policies as the reconciler expects them
func (c *Config) ReconcilerConfig() services.ReconcilerConfig {
	return services.ReconcilerConfig{
		LeadingGap:       c.LeadingGapPolicy,
		SupplyRateMode:   c.SupplyRateMode,
		ReserveFactorBps: c.ReserveFactorBps,
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Upstream
		SubgraphURL: os.Getenv("SUBGRAPH_URL"),
		RatesURL:    os.Getenv("RATES_URL"),

		// HTTP
		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		RequestTimeout: 30 * time.Second,

		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Accrual policy
		ReserveFactorBps: 1000,

		// Logging
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		// Environment
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	var err error
	if config.LeadingGapPolicy, err = services.ParseLeadingGapPolicy(os.Getenv("LEADING_GAP_POLICY")); err != nil {
		return nil, err
	}
	if config.SupplyRateMode, err = services.ParseSupplyRateMode(os.Getenv("SUPPLY_RATE_MODE")); err != nil {
		return nil, err
	}

	// Override defaults if environment variables are set
	if bps := os.Getenv("RESERVE_FACTOR_BPS"); bps != "" {
		parsed, err := strconv.ParseInt(bps, 10, 64)
		if err != nil || parsed < 0 || parsed > 10_000 {
			return nil, fmt.Errorf("RESERVE_FACTOR_BPS must be between 0 and 10000, got %q", bps)
		}
		config.ReserveFactorBps = parsed
	}
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		config.RequestTimeout = parsed
	}

	config.Tokens = entities.DefaultTokens()
	if tokens := os.Getenv("TOKENS"); tokens != "" {
		if config.Tokens, err = ParseTokens(tokens); err != nil {
			return nil, err
		}
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.SubgraphURL == "" {
			return nil, fmt.Errorf("SUBGRAPH_URL is required")
		}
		if config.RatesURL == "" {
			return nil, fmt.Errorf("RATES_URL is required")
		}
	}

	return config, nil
}

// ParseTokens parses a comma separated token list of the form
// SYMBOL:decimals:address[:reserveId|reserveId...]
func ParseTokens(s string) ([]entities.Token, error) {
	var tokens []entities.Token
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid token entry %q: expected SYMBOL:decimals:address[:reserveIds]", entry)
		}
		decimals, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil || decimals > 36 {
			return nil, fmt.Errorf("invalid decimals in token entry %q", entry)
		}
		token := entities.Token{
			Symbol:   strings.ToUpper(parts[0]),
			Decimals: uint8(decimals),
			Address:  strings.ToLower(parts[2]),
		}
		if token.Symbol == "" || token.Address == "" {
			return nil, fmt.Errorf("invalid token entry %q: symbol and address are required", entry)
		}
		if len(parts) == 4 {
			for _, id := range strings.Split(parts[3], "|") {
				if id = strings.TrimSpace(id); id != "" {
					token.ReserveIDs = append(token.ReserveIDs, strings.ToLower(id))
				}
			}
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("TOKENS is set but lists no tokens")
	}
	return tokens, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		HTTPAddr:         ":0",
		RequestTimeout:   5 * time.Second,
		LeadingGapPolicy: services.LeadingGapBackfill,
		SupplyRateMode:   services.SupplyRateBorrow,
		ReserveFactorBps: 1000,
		Tokens:           entities.DefaultTokens(),
		LogLevel:         "info",
		LogFormat:        "text",
	}
}
