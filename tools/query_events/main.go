package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/patrickwarner/bannerrotator/internal/analytics"
	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var bannerID, limit int
	var dsn string
	flag.IntVar(&bannerID, "banner", 0, "banner ID")
	flag.IntVar(&limit, "limit", 50, "maximum number of events")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.Parse()

	if bannerID == 0 {
		fmt.Fprintln(os.Stderr, "banner required")
		os.Exit(1)
	}
	if dsn == "" {
		cfg := config.Load()
		dsn = cfg.ClickHouseDSN
	}

	a, err := analytics.InitClickHouse(dsn, observability.NewNoOpRegistry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	events, err := a.EventsByBanner(context.Background(), bannerID, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
		os.Exit(1)
	}
}
