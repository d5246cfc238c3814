package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/logger"
	"github.com/dshills/scopeiq/internal/mcp"
	"github.com/dshills/scopeiq/internal/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol server. Requests arrive as JSON-RPC on
stdin and responses are written to stdout; all logging goes to stderr.

MCP client configuration:
  {
    "mcpServers": {
      "scopeiq": {
        "command": "/path/to/scopeiq",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	c, err := openComponents(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	logger.Info("ScopeIQ MCP server v%s starting", version)
	logger.Info("Build Mode: %s, Driver: %s, Vector Extension: %v",
		storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)

	server, err := mcp.NewServer(mcp.Deps{
		Router:     c.router,
		Indexer:    c.indexer,
		Engine:     c.engine,
		Domain:     c.domain,
		Classifier: c.classifier,
	})
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal %v, shutting down", sig)
		cancel()
		// Listen returns once its context is done
		if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
