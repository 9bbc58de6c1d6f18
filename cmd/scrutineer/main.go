// Package main provides the scrutineer command line interface: a server
// for the scoresheet analysis API and a one-shot analyze command.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scrutineer",
	Short: "Dance competition scoresheet analyzer",
	Long: "Scrutineer re-tabulates competition scoresheets under four voting systems " +
		"(Borda Count, Relative Placement, Schulze Method, Sequential IRV) so their " +
		"outcomes can be compared side by side.",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration file")
}

func main() {
	// Load .env file if it exists.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
