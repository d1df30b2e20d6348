// Package acquire builds a paper corpus from the arXiv Atom API.
//
//	f := acquire.NewFetcher(acquire.WithLogger(logger))
//	w := corpus.NewWriter(out)
//	n, err := f.Fetch(ctx, "cat:cs.CL+AND+submittedDate:[202201010600+TO+202504010600]", 0, 10000, w)
//
// Pages of 50 entries are requested with a 5 second pause between them.
// Each entry becomes one JSONL record whose id is the abs link without its
// http(s)://arxiv.org/abs/ prefix.
package acquire
