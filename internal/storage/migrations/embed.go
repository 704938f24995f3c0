package migrations

import "embed"

// PostgresFS holds the probe run history schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the latency timeseries schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
