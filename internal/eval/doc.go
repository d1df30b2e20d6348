// Package eval scores retrieval quality against graded ground truth.
//
// Ground-truth ids carry their relevance in a suffix: "<paper>_level<N>" is
// a rewrite of <paper> at distance N, where level 1 is the closest and
// grades 5, level 5 grades 1. Anything else grades 0.
//
// An evaluation pass builds tasks from two JSONL files (the original papers
// and their augmented variants), filters each task's ground truth to the
// configured maximum level, asks a Retriever for a ranking and scores it:
//
//	tasks, _ := eval.LoadTasks("positive.jsonl", "augmented.jsonl", logger)
//	runner, _ := eval.NewRunner(retriever, eval.WithMaxLevel(4), eval.WithLimit(10))
//	defer runner.Release()
//	records, _ := runner.RunAll(ctx, tasks)
//	summary := eval.Summarize(records)
//
// Tasks whose filtered ground truth is empty are scored as zero without
// calling the Retriever.
package eval
