package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/acquire"
	"github.com/dshills/litsearch/internal/corpus"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch arXiv metadata into a JSONL corpus",
	Long: `Fetch pages through the arXiv query API from --start up to --end (an index,
not a count), writing one JSONL record per entry. Pages are requested
fetch.page_size at a time with fetch.wait between them. Records already
written are kept when a page fails.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("query", "", "arXiv search_query, e.g. cat:cs.LG")
	fetchCmd.Flags().Int("start", 0, "first result index")
	fetchCmd.Flags().Int("end", 1000, "stop before this result index")
	fetchCmd.Flags().StringP("out", "o", "corpus.jsonl", "output JSONL file")
	fetchCmd.Flags().Bool("append", false, "append to the output file instead of truncating it")
	_ = fetchCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	out, _ := cmd.Flags().GetString("out")
	appendMode, _ := cmd.Flags().GetBool("append")

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(out, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", out, err)
	}
	defer func() { _ = f.Close() }()

	fetcher := acquire.NewFetcher(
		acquire.WithBaseURL(cfg.Fetch.BaseURL),
		acquire.WithPageSize(cfg.Fetch.PageSize),
		acquire.WithWait(cfg.Fetch.Wait),
		acquire.WithRetry(cfg.RetryPolicy()),
		acquire.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		acquire.WithLogger(logger),
	)

	n, err := fetcher.Fetch(cmd.Context(), query, start, end, corpus.NewWriter(f))
	logger.Info().Int("records", n).Str("out", out).Msg("fetch finished")
	if err != nil {
		return fmt.Errorf("fetch stopped after %d records: %w", n, err)
	}
	return nil
}
