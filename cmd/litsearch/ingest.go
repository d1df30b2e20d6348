package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/indexer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus.jsonl>",
	Short: "Embed and index a JSONL corpus",
	Long: `Ingest reads JSONL records ({id, title, author, link, time, abstract}),
embeds each abstract with dense and sparse vectors and upserts them by id.
Malformed lines are skipped; a record with an empty id aborts the ingest
before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("batch-size", 0, "records per embed call and transaction (default from ingest.batch_size)")
	ingestCmd.Flags().Int("workers", 0, "concurrent batches (default from ingest.workers, else CPU count)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ingestCfg := &indexer.Config{
		BatchSize: cfg.Ingest.BatchSize,
		Workers:   cfg.Ingest.Workers,
		Source:    path,
	}
	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		ingestCfg.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		ingestCfg.Workers = n
	}

	stats, err := indexer.New(svc.index, svc.embedder, logger).IngestFile(ctx, path, ingestCfg)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
