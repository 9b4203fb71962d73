package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/roster/internal/app"
	"github.com/felixgeelhaar/roster/internal/config"
	mcpserver "github.com/felixgeelhaar/roster/internal/mcp"
)

// cmdMCP serves the roster over MCP on stdio. It opens the configured
// backend in-process, so it should not share a file or sqlite roster with a
// running daemon.
func cmdMCP() error {
	// stdout carries the protocol.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	rosterDir, err := config.EnsureRosterDir()
	if err != nil {
		return fmt.Errorf("ensure roster dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, app.AppConfig{
		Config:       cfg,
		Dir:          rosterDir,
		RequireUsers: true,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Store:    application.Store,
		Verifier: application.Verifier,
		Version:  Version,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return mcpSrv.ServeStdio(ctx)
}
