// Command headkeymcp runs the belief store as a standalone MCP server over
// stdio, for agents that talk MCP directly rather than embedding the
// headkey package.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserverlib "github.com/mark3labs/mcp-go/server"

	"github.com/savantly-net/headkey"
	"github.com/savantly-net/headkey/internal/mcpserver"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := headkey.New(ctx, headkey.WithLogger(logger), headkey.WithVersion(version))
	if err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Warn("close error", "error", err)
		}
	}()

	srv := mcpserver.New(app.Pipeline(), app.Beliefs(), app.Graph(), logger, version)

	if err := mcpserverlib.ServeStdio(srv.MCPServer()); err != nil {
		logger.Error("mcp server error", "error", err)
		return 1
	}
	return 0
}
