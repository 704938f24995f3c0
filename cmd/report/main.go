// Package main generates a probe history report (Markdown + CSV) from
// stored runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"starknet-probe/internal/config"
	"starknet-probe/internal/reporting"
	"starknet-probe/internal/storage"
	chstore "starknet-probe/internal/storage/clickhouse"
	"starknet-probe/internal/storage/migrations"
	pgstore "starknet-probe/internal/storage/postgres"
)

func main() {
	config.LoadEnvFile(".env")

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables timeseries latency stats)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	window := flag.Duration("window", 24*time.Hour, "Report window ending now")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required (or set POSTGRES_DSN)")
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	var latencyStore storage.LatencySampleStore
	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		defer conn.Close()
		latencyStore = chstore.NewLatencySampleStore(conn)
	}

	if err := generate(ctx, pgstore.NewProbeRunStore(pool), latencyStore, *outputDir, *window); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func generate(ctx context.Context, store storage.ProbeRunStore, latencyStore storage.LatencySampleStore, outputDir string, window time.Duration) error {
	end := time.Now()
	start := end.Add(-window)

	report, err := reporting.NewGenerator(store, latencyStore).Generate(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(outputDir, "PROBE_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	csvPath := filepath.Join(outputDir, "probe_checks.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.CheckStats)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	fmt.Printf("Report generated: %s, %s (%d runs, pass rate %.1f%%)\n",
		mdPath, csvPath, report.RunSummary.TotalRuns, report.RunSummary.PassRate*100)
	return nil
}
