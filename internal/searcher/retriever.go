package searcher

import (
	"context"
	"fmt"

	"github.com/dshills/litsearch/internal/fusion"
)

// FusionRetriever returns fused ids without hydration or highlighting.
// It satisfies eval.Retriever.
type FusionRetriever struct {
	s      *Searcher
	policy fusion.Policy
	params fusion.Params
}

// EvalRetriever adapts the searcher for offline evaluation with its own
// fusion policy, independent of the online default
func (s *Searcher) EvalRetriever(policy fusion.Policy, params fusion.Params) (*FusionRetriever, error) {
	if _, err := fusion.ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	return &FusionRetriever{s: s, policy: policy, params: params}, nil
}

// Retrieve returns up to limit fused ids, best first
func (r *FusionRetriever) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d", limit)
	}
	fused, _, _, err := r.s.retrieve(ctx, query, limit, r.policy, r.params)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	return ids, nil
}
