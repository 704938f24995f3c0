// Package config loads probe configuration from flags, environment
// variables, and an optional .env file. Flags win over env vars; env vars
// win over .env entries.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Networks the probe knows how to target.
const (
	NetworkMainnet = "mainnet"
	NetworkSepolia = "sepolia"
)

// Config holds all probe settings.
type Config struct {
	// Target chain
	Network     string // "mainnet" | "sepolia"
	RPCEndpoint string // Starknet JSON-RPC HTTP endpoint, required
	WSEndpoint  string // Starknet WebSocket endpoint, optional

	// Wallet connector daemon. When either is unset the probe degrades to
	// the RPC-only checks.
	ConnectorURL   string
	AccountAddress string

	// Swap providers, name=url pairs
	Providers map[string]string

	// Opt-in on-chain checks
	EnableTransfer bool
	EnableSwap     bool

	// Storage. Empty DSNs with UseMemory unset is a validation error.
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool

	// Serving
	HTTPAddr string

	// Scheduling (cmd/server)
	RunSchedule string // cron expression

	// Timeouts
	CheckTimeout time.Duration

	// Reporting output
	OutputDir string
}

// Load parses flags with env-var defaults and validates the result.
// A .env file in the working directory is read first, without overriding
// variables already set in the environment.
func Load(args []string) (*Config, error) {
	LoadEnvFile(".env")

	fs := flag.NewFlagSet("starknet-probe", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.Network, "network", envOr("PROBE_NETWORK", NetworkMainnet), "Target network (mainnet, sepolia)")
	fs.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", os.Getenv("STARKNET_RPC_ENDPOINT"), "Starknet JSON-RPC HTTP endpoint")
	fs.StringVar(&cfg.WSEndpoint, "ws-endpoint", os.Getenv("STARKNET_WS_ENDPOINT"), "Starknet WebSocket endpoint")
	fs.StringVar(&cfg.ConnectorURL, "connector-url", os.Getenv("WALLET_CONNECTOR_URL"), "Wallet connector daemon base URL")
	fs.StringVar(&cfg.AccountAddress, "account", os.Getenv("PROBE_ACCOUNT_ADDRESS"), "Probe account contract address")
	providers := fs.String("providers", os.Getenv("SWAP_PROVIDERS"), "Swap providers as comma-separated name=url pairs")
	fs.BoolVar(&cfg.EnableTransfer, "enable-transfer", envBool("PROBE_ENABLE_TRANSFER"), "Run the on-chain transfer check")
	fs.BoolVar(&cfg.EnableSwap, "enable-swap", envBool("PROBE_ENABLE_SWAP"), "Run the end-to-end swap check")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	fs.BoolVar(&cfg.UseMemory, "use-memory", envBool("PROBE_USE_MEMORY"), "Use in-memory storage instead of PostgreSQL/ClickHouse")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", envOr("PROBE_HTTP_ADDR", ":8080"), "Status server listen address")
	fs.StringVar(&cfg.RunSchedule, "schedule", envOr("PROBE_SCHEDULE", "@every 5m"), "Cron schedule for probe runs")
	fs.DurationVar(&cfg.CheckTimeout, "check-timeout", envDuration("PROBE_CHECK_TIMEOUT", 2*time.Minute), "Per-check timeout")
	fs.StringVar(&cfg.OutputDir, "output-dir", envOr("PROBE_OUTPUT_DIR", "output"), "Report output directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	parsed, err := ParseProviders(*providers)
	if err != nil {
		return nil, err
	}
	cfg.Providers = parsed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Network != NetworkMainnet && c.Network != NetworkSepolia {
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("rpc endpoint is required (set STARKNET_RPC_ENDPOINT or --rpc-endpoint)")
	}
	if !c.UseMemory {
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required unless --use-memory is set")
		}
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("clickhouse dsn is required unless --use-memory is set")
		}
	}
	return nil
}

// ParseProviders parses "name=url,name=url" into a map. Empty input yields
// an empty map.
func ParseProviders(raw string) (map[string]string, error) {
	providers := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return providers, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid provider entry %q, want name=url", pair)
		}
		providers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return providers, nil
}

// LoadEnvFile loads environment variables from a file if it exists.
// Existing environment variables are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
