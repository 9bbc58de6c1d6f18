package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrutineer-app/scrutineer/internal/application"
	"github.com/scrutineer-app/scrutineer/internal/server"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url-or-file>",
	Short: "Analyze one scoresheet and print the results as JSON",
	Long: "Analyze downloads or reads a scoresheet, runs every voting system " +
		"against it, and prints the combined analysis as JSON on stdout.",
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeDivision string

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDivision, "division", "",
		"Division to select on multi-division result pages")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Quiet structured logs on stderr; stdout carries only the JSON.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	registry, err := application.NewEngineRegistry(cfg.Engines, nil)
	if err != nil {
		return fmt.Errorf("failed to build engines: %w", err)
	}
	analyzer := application.NewAnalyzer(
		registry,
		nil,
		server.NewHTTPFetcher(cfg.Fetch),
		nil,
		logger,
	)

	source := args[0]
	var analysis *application.Analysis
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		analysis, err = analyzer.AnalyzeURL(cmd.Context(), source, analyzeDivision)
	} else {
		var content []byte
		content, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", source, err)
		}
		analysis, err = analyzer.AnalyzeContent(cmd.Context(), source, content, analyzeDivision)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}
