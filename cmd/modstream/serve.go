package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"modstream/internal/api"
)

var (
	serveAddr   string
	serveParser string
	serveDB     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP bundle server",
	Long: `Start the modstream HTTP server. Every target declared in the targets file is
served at /bundles/{target} as a chunked frame stream, flushed after each
module, with zstd or gzip transport compression when the client accepts it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveParser, "parser", "", "Import parser: auto, treesitter or pattern (default from config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Serve sources from a SQLite snapshot instead of the package tree")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	logger := s.logger

	addr := serveAddr
	if addr == "" {
		addr = s.cfg.Serve.Addr
	}

	manifest, err := s.loadTargets()
	if err != nil {
		return err
	}
	if len(manifest.Targets) == 0 {
		logger.Warn("No bundle targets configured", "targetsFile", s.targetsPath())
	}

	builder, closeStore, err := s.newBuilder(context.Background(), serveParser, serveDB)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	server := api.NewServer(addr, builder, manifest, logger)

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "modstream listening on http://%s\n", addr)
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())

		timeout := time.Duration(s.cfg.Serve.ShutdownTimeoutMs) * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
	}

	return nil
}
