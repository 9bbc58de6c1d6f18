package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scrutineer-app/scrutineer/infrastructure/middleware"
	"github.com/scrutineer-app/scrutineer/internal/application"
	"github.com/scrutineer-app/scrutineer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scoresheet analysis HTTP server",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	metrics := middleware.NewPrometheusMetrics()
	registry, err := application.NewEngineRegistry(cfg.Engines, metrics)
	if err != nil {
		return fmt.Errorf("failed to build engines: %w", err)
	}

	analyzer := application.NewAnalyzer(
		registry,
		nil,
		server.NewHTTPFetcher(cfg.Fetch),
		metrics,
		logger,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.Server, analyzer, logger).Run(ctx)
}
