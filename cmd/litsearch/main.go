// Package main is the entry point for the litsearch CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/config"
	"github.com/dshills/litsearch/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Loaded by PersistentPreRunE before any subcommand runs
var (
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd is the base command for the litsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "litsearch",
	Short: "Literature search with fused retrieval, highlights and evaluation",
	Long: `litsearch indexes paper abstracts with dense and sparse embeddings, answers
queries by fusing both rankings, highlights the tokens a query shares with a
paper, and scores retrieval against graded ground truth.

Serve the HTTP API with "serve" or MCP tools over stdio with "mcp". Corpus
files are JSONL records produced by "fetch" and loaded with "ingest".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		v, err := config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.Log.Level
		}
		logger = logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Out: os.Stderr})
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug().Str("config", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litsearch.yaml or ~/.config/litsearch/litsearch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
