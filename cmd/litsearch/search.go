package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/fusion"
	"github.com/dshills/litsearch/internal/highlight"
	"github.com/dshills/litsearch/internal/searcher"
)

var bracketMarker = highlight.Marker{Open: "[", Close: "]"}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the index from the command line",
	Long: `Search embeds the query, runs dense and sparse retrieval and prints the fused
ranking. Matching tokens in each abstract are bracketed unless --json is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("top-k", "k", 0, "number of results (default from search.top_k)")
	searchCmd.Flags().String("policy", "", "fusion policy: rrf or weighted (default from search.fusion.policy)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srch, err := svc.newSearcher()
	if err != nil {
		return err
	}

	req := searcher.SearchRequest{Query: query, TopK: cfg.Search.TopK}
	if k, _ := cmd.Flags().GetInt("top-k"); k != 0 {
		req.TopK = k
	}
	if name, _ := cmd.Flags().GetString("policy"); name != "" {
		policy, err := fusion.ParsePolicy(name)
		if err != nil {
			return err
		}
		req.Policy = policy
	}

	resp, err := srch.Search(ctx, req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Hits) == 0 {
		fmt.Println("No results.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, hit := range resp.Hits {
		doc := hit.Document
		fmt.Fprintf(w, "%d.\t%s\t%.4f\t%s\n", hit.Rank, doc.ID, searcher.RoundScore(hit.Score), doc.Title)
		fmt.Fprintf(w, "\t%s\t%s\t%s\n", doc.Year(), strings.Join(doc.Authors, ", "), doc.LinkOrDefault())
		fmt.Fprintf(w, "\t\t\t%s\n\n", highlight.Render(doc.Abstract, hit.Highlights, bracketMarker))
	}
	return w.Flush()
}
