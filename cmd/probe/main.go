// Package main runs a single probe pass against a Starknet DeFi
// environment and exits 0 iff the run passed. Per-check lines go to
// stdout; structured logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"starknet-probe/internal/bitcoin"
	"starknet-probe/internal/config"
	"starknet-probe/internal/domain"
	"starknet-probe/internal/probe"
	"starknet-probe/internal/starknet"
	"starknet-probe/internal/storage"
	chstore "starknet-probe/internal/storage/clickhouse"
	"starknet-probe/internal/storage/memory"
	"starknet-probe/internal/storage/migrations"
	pgstore "starknet-probe/internal/storage/postgres"
	"starknet-probe/internal/swap"
	"starknet-probe/internal/wallet"
)

// Defaults for the opt-in on-chain checks. Self-transfer of a dust amount
// keeps the transfer check cheap and side-effect free.
var (
	transferToken  = domain.TokenETH
	transferAmount = decimal.RequireFromString("0.000001")

	quoteRequest = domain.QuoteRequest{
		In:          domain.TokenETH,
		Out:         domain.TokenUSDC,
		AmountIn:    decimal.RequireFromString("0.01"),
		SlippageBPS: 50,
	}
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := runProbe(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("probe failed to execute")
	}

	printSummary(run)
	if !run.Passed {
		os.Exit(1)
	}
}

func runProbe(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*domain.ProbeRun, error) {
	runStore, latencyStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	checks, err := buildChecks(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := probe.NewRunner(probe.Options{
		Network:      cfg.Network,
		Checks:       checks,
		CheckTimeout: cfg.CheckTimeout,
		RunStore:     runStore,
		LatencyStore: latencyStore,
		Logger:       logger,
	})
	return runner.Run(ctx)
}

// buildStores wires persistence: memory in --use-memory mode, otherwise
// PostgreSQL for runs and ClickHouse for latency samples.
func buildStores(ctx context.Context, cfg *config.Config) (storage.ProbeRunStore, storage.LatencySampleStore, func(), error) {
	if cfg.UseMemory {
		return memory.NewProbeRunStore(), memory.NewLatencySampleStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse: %w", err)
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}
	return pgstore.NewProbeRunStore(pool), chstore.NewLatencySampleStore(conn), cleanup, nil
}

func buildChecks(cfg *config.Config, logger zerolog.Logger) ([]probe.Check, error) {
	chainID := starknet.ChainMainnet
	btcNetwork := bitcoin.NetworkMainnet
	if cfg.Network == config.NetworkSepolia {
		chainID = starknet.ChainSepolia
		btcNetwork = bitcoin.NetworkTestnet
	}

	rpc := starknet.NewHTTPClient(cfg.RPCEndpoint)
	checks := []probe.Check{probe.NewRPCCheck(rpc, chainID)}

	if cfg.ConnectorURL == "" || cfg.AccountAddress == "" {
		logger.Warn().Msg("wallet connector not configured, wallet/transfer/swap checks unavailable")
		return checks, nil
	}

	connector := wallet.NewConnector(cfg.ConnectorURL)
	account := wallet.NewAccount(rpc, connector, cfg.AccountAddress, chainID)

	checks = append(checks,
		probe.NewWalletCheck(connector, account, transferToken),
		probe.NewTransferCheck(cfg.EnableTransfer, account, transferToken,
			cfg.AccountAddress, transferAmount, wallet.DefaultPollInterval),
	)

	if len(cfg.Providers) == 0 {
		logger.Warn().Msg("no swap providers configured, quote/swap checks unavailable")
		return checks, nil
	}

	providers := make([]swap.Provider, 0, len(cfg.Providers))
	for name, url := range cfg.Providers {
		providers = append(providers, swap.NewHTTPProvider(name, url, btcNetwork))
	}
	aggregator := swap.NewAggregator(providers, logger)
	executor := swap.NewExecutor(account)

	checks = append(checks,
		probe.NewQuoteCheck(aggregator, quoteRequest),
		probe.NewSwapCheck(cfg.EnableSwap, aggregator, executor, quoteRequest,
			swap.OrderParams{Recipient: cfg.AccountAddress}, wallet.DefaultPollInterval),
	)
	return checks, nil
}

// printSummary writes the human-readable result to stdout.
func printSummary(run *domain.ProbeRun) {
	for _, result := range run.Results {
		line := fmt.Sprintf("%-8s %-4s %5dms", result.Name, result.Status, result.LatencyMS)
		if result.Detail != "" {
			line += "  " + result.Detail
		}
		if result.Error != "" {
			line += "  " + result.Error
		}
		fmt.Println(line)
	}

	verdict := "FAILED"
	if run.Passed {
		verdict = "PASSED"
	}
	elapsed := time.Duration(run.FinishedAt-run.StartedAt) * time.Millisecond
	fmt.Printf("probe %s: %d executed, %d skipped in %s (run %s)\n",
		verdict, run.Executed, run.Skipped, elapsed, run.RunID)
}
