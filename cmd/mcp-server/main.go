package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/db"
)

func main() {
	// Log to stderr so stdout stays reserved for the stdio transport.
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.MessageKey = "msg"

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("bannerrotator-mcp").With(zap.String("service", "bannerrotator-mcp"))
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	tools := &RotatorTools{banners: pg, places: pg, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "bannerrotator",
		Version: "1.0.0",
	}, nil)
	registerTools(server, tools)

	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio")
	if err := server.Run(context.Background(), transport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
