package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/eval"
	"github.com/dshills/litsearch/internal/fusion"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score retrieval against graded ground truth",
	Long: `Evaluate pairs each record of --positive with the records of --augmented
named <id>_level<N>, retrieves with the eval.fusion policy (weighted 0.5/0.5
by default) and reports Precision@K, Recall@K, NDCG@K and MRR per query plus
their means.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().String("positive", "", "JSONL file of query papers")
	evaluateCmd.Flags().String("augmented", "", "JSONL file of graded variants")
	evaluateCmd.Flags().Int("max-level", 0, "highest level kept as ground truth (default from eval.max_level)")
	evaluateCmd.Flags().Int("limit", 0, "results retrieved per query (default from eval.limit)")
	evaluateCmd.Flags().Int("max-tasks", 0, "evaluate at most this many queries (0 means all)")
	evaluateCmd.Flags().Int("concurrency", 0, "parallel queries (default from eval.concurrency)")
	evaluateCmd.Flags().String("policy", "", "fusion policy: rrf or weighted (default from eval.fusion.policy)")
	evaluateCmd.Flags().String("format", "", "report format: yaml or json (default from eval.format)")
	evaluateCmd.Flags().StringP("out", "o", "", "write the report to a file instead of stdout")
	_ = evaluateCmd.MarkFlagRequired("positive")
	_ = evaluateCmd.MarkFlagRequired("augmented")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	positive, _ := cmd.Flags().GetString("positive")
	augmented, _ := cmd.Flags().GetString("augmented")
	maxLevel := intFlagOr(cmd, "max-level", cfg.Eval.MaxLevel)
	limit := intFlagOr(cmd, "limit", cfg.Eval.Limit)
	concurrency := intFlagOr(cmd, "concurrency", cfg.Eval.Concurrency)
	maxTasks, _ := cmd.Flags().GetInt("max-tasks")
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Eval.Format
	}

	policy, params, err := cfg.Eval.Fusion.Parse()
	if err != nil {
		return err
	}
	if name, _ := cmd.Flags().GetString("policy"); name != "" {
		if policy, err = fusion.ParsePolicy(name); err != nil {
			return err
		}
	}

	tasks, err := eval.LoadTasks(positive, augmented, logger)
	if err != nil {
		return err
	}

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srch, err := svc.newSearcher()
	if err != nil {
		return err
	}
	retriever, err := srch.EvalRetriever(policy, params)
	if err != nil {
		return err
	}

	runner, err := eval.NewRunner(retriever,
		eval.WithMaxLevel(maxLevel),
		eval.WithLimit(limit),
		eval.WithMaxTasks(maxTasks),
		eval.WithConcurrency(concurrency),
		eval.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer runner.Release()

	records, err := runner.RunAll(ctx, tasks)
	if err != nil {
		return err
	}
	summary := eval.Summarize(records)

	logger.Info().
		Str("policy", string(policy)).
		Int("tasks", summary.Tasks).
		Int("evaluated", summary.Evaluated).
		Float64("mean_ndcg", summary.NDCG).
		Float64("mean_mrr", summary.MRR).
		Msg("evaluation complete")

	var w io.Writer = os.Stdout
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return eval.WriteReport(w, format, records, summary)
}

func intFlagOr(cmd *cobra.Command, name string, fallback int) int {
	if n, _ := cmd.Flags().GetInt(name); n != 0 {
		return n
	}
	return fallback
}
