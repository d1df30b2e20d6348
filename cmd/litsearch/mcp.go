package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/indexer"
	"github.com/dshills/litsearch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve litsearch tools over MCP stdio",
	Long: `MCP serves search_papers, compare_text, ingest_corpus, evaluate_retrieval and
get_status to an MCP client over stdin/stdout. Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("version", version).Msg("litsearch MCP server starting")

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srch, err := svc.newSearcher()
	if err != nil {
		return err
	}
	defer func() { _ = srch.Close() }()

	policy, params, err := cfg.Eval.Fusion.Parse()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.Config{
		Index:    svc.index,
		Indexer:  indexer.New(svc.index, svc.embedder, logger),
		Searcher: srch,
		Eval: mcp.EvalConfig{
			Policy:      policy,
			Params:      params,
			MaxLevel:    cfg.Eval.MaxLevel,
			Limit:       cfg.Eval.Limit,
			Concurrency: cfg.Eval.Concurrency,
		},
		Ingest: indexer.Config{BatchSize: cfg.Ingest.BatchSize, Workers: cfg.Ingest.Workers},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	err = server.Serve(ctx)
	logger.Info().Msg("MCP server stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}
