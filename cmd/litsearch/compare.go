package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/highlight"
	"github.com/dshills/litsearch/internal/searcher"
	"github.com/dshills/litsearch/internal/tokenizer"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Highlight tokens shared by a query and a paper text",
	Long: `Compare prints userHighlights (offsets into the query) and paperHighlights
(offsets into the paper text). No index or embedder is needed.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().String("query", "", "user text")
	compareCmd.Flags().String("paper", "", "paper text")
	compareCmd.Flags().String("paper-file", "", "read the paper text from a file")
	compareCmd.Flags().Bool("render", false, "print both texts with bracketed highlights instead of JSON")
	_ = compareCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	paper, _ := cmd.Flags().GetString("paper")
	if path, _ := cmd.Flags().GetString("paper-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read paper text: %w", err)
		}
		paper = string(data)
	}

	aligner := highlight.NewAligner(tokenizer.NewUnicode())
	user := aligner.Align(paper, query)
	paperSpans := aligner.Align(query, paper)

	if render, _ := cmd.Flags().GetBool("render"); render {
		fmt.Println("Query: ", highlight.Render(query, user, bracketMarker))
		fmt.Println("Paper: ", highlight.Render(paper, paperSpans, bracketMarker))
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(searcher.CompareResult{UserHighlights: user, PaperHighlights: paperSpans})
}
