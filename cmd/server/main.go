// Package main runs the probe continuously: cron-scheduled runs, a
// WebSocket head watcher, and an HTTP status server with Prometheus
// metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"starknet-probe/internal/bitcoin"
	"starknet-probe/internal/config"
	"starknet-probe/internal/domain"
	"starknet-probe/internal/observability"
	"starknet-probe/internal/probe"
	"starknet-probe/internal/server"
	"starknet-probe/internal/starknet"
	"starknet-probe/internal/storage"
	chstore "starknet-probe/internal/storage/clickhouse"
	"starknet-probe/internal/storage/memory"
	"starknet-probe/internal/storage/migrations"
	pgstore "starknet-probe/internal/storage/postgres"
	"starknet-probe/internal/swap"
	"starknet-probe/internal/wallet"
)

// Defaults for the opt-in on-chain checks, shared with cmd/probe.
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	metrics := observability.NewMetrics("")

	runStore, latencyStore, cleanup, err := buildStores(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	checks, err := buildChecks(cfg, metrics, logger)
	if err != nil {
		return err
	}

	runner := probe.NewRunner(probe.Options{
		Network:      cfg.Network,
		Checks:       checks,
		CheckTimeout: cfg.CheckTimeout,
		RunStore:     runStore,
		LatencyStore: latencyStore,
		Metrics:      metrics,
		Logger:       logger,
	})

	// Scheduled probe runs. The first run fires immediately so /status has
	// data before the schedule kicks in.
	go func() {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("initial probe run")
		}
	}()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RunSchedule, func() {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduled probe run")
		}
	})
	if err != nil {
		return fmt.Errorf("bad schedule %q: %w", cfg.RunSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Head watcher keeps the latest-block gauge current between runs.
	if cfg.WSEndpoint != "" {
		if err := watchHeads(ctx, cfg.WSEndpoint, metrics, logger); err != nil {
			logger.Warn().Err(err).Msg("head watcher unavailable")
		}
	}

	srv := server.New(server.Options{
		RunStore: runStore,
		Metrics:  observability.Handler(),
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	}
}

// watchHeads subscribes to new block headers and feeds the block gauge.
func watchHeads(ctx context.Context, endpoint string, metrics *observability.Metrics, logger zerolog.Logger) error {
	wsCfg := starknet.DefaultWSConfig()
	wsCfg.OnReconnect = func() { metrics.WSReconnects.Inc() }

	ws, err := starknet.NewWSClient(ctx, endpoint, &wsCfg, logger)
	if err != nil {
		return err
	}

	heads, err := ws.SubscribeNewHeads(ctx)
	if err != nil {
		ws.Close()
		return err
	}

	go func() {
		defer ws.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case head, ok := <-heads:
				if !ok {
					return
				}
				metrics.LatestBlockSeen.Set(float64(head.BlockNumber))
				logger.Debug().Int64("block", head.BlockNumber).Msg("new head")
			}
		}
	}()
	return nil
}

// buildStores wires persistence: memory in --use-memory mode, otherwise
// PostgreSQL for runs and ClickHouse for latency samples.
func buildStores(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (storage.ProbeRunStore, storage.LatencySampleStore, func(), error) {
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
	runStore := pgstore.NewProbeRunStore(pool).WithMetrics(metrics)
	latencyStore := chstore.NewLatencySampleStore(conn).WithMetrics(metrics)
	return runStore, latencyStore, cleanup, nil
}

func buildChecks(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) ([]probe.Check, error) {
	chainID := starknet.ChainMainnet
	btcNetwork := bitcoin.NetworkMainnet
	if cfg.Network == config.NetworkSepolia {
		chainID = starknet.ChainSepolia
		btcNetwork = bitcoin.NetworkTestnet
	}

	rpc := starknet.NewHTTPClient(cfg.RPCEndpoint,
		starknet.WithCallObserver(metrics.RecordRPCCall))
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
	aggregator := swap.NewAggregator(providers, logger).WithMetrics(metrics)
	executor := swap.NewExecutor(account)

	checks = append(checks,
		probe.NewQuoteCheck(aggregator, quoteRequest),
		probe.NewSwapCheck(cfg.EnableSwap, aggregator, executor, quoteRequest,
			swap.OrderParams{Recipient: cfg.AccountAddress}, wallet.DefaultPollInterval),
	)
	return checks, nil
}
