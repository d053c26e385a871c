package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/groundedqa/internal/adapters/mcp"
	"github.com/kirillkom/groundedqa/internal/bootstrap"
	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	slog.SetDefault(logging.NewLogger(os.Stderr, "mcp", cfg.LogLevel, "text"))

	if err := run(context.Background(), cfg); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	return server.ServeStdio(mcpadapter.NewServer(app.QueryUC, version))
}
