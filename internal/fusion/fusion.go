// Package fusion merges two independently ranked candidate lists into one
// ranking.
package fusion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/litsearch/pkg/types"
)

// Policy selects how candidate lists are combined
type Policy string

const (
	PolicyRRF      Policy = "rrf"      // Reciprocal Rank Fusion
	PolicyWeighted Policy = "weighted" // Weighted sum of raw scores
)

// DefaultRRFConstant is the k in 1/(k + rank)
const DefaultRRFConstant = 60.0

// Params holds policy parameters. K applies to RRF; WeightA and WeightB to
// weighted fusion.
type Params struct {
	K       float64
	WeightA float64
	WeightB float64
}

// ParsePolicy converts a policy name into a Policy
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyRRF, PolicyWeighted:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownPolicy, name)
	}
}

// Fuse combines listA and listB under policy and returns at most limit hits,
// ordered by descending fused score with ties broken by ascending id.
// A limit <= 0 returns every fused hit. An unknown policy is an
// ErrUnknownPolicy error.
func Fuse(listA, listB []types.ScoredCandidate, policy Policy, params Params, limit int) ([]types.FusedHit, error) {
	var scores map[string]float64
	switch policy {
	case PolicyWeighted:
		scores = weighted(listA, listB, params.WeightA, params.WeightB)
	case PolicyRRF:
		k := params.K
		if k == 0 {
			k = DefaultRRFConstant
		}
		scores = reciprocalRank(listA, listB, k)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPolicy, policy)
	}

	hits := make([]types.FusedHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, types.FusedHit{ID: id, FusedScore: score})
	}
	sortHits(hits)

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// reciprocalRank sums 1/(k + rank) over the lists containing each id.
// rank is the 0-based position in each list.
func reciprocalRank(listA, listB []types.ScoredCandidate, k float64) map[string]float64 {
	scores := make(map[string]float64, len(listA)+len(listB))
	for _, list := range [][]types.ScoredCandidate{listA, listB} {
		for _, c := range list {
			scores[c.ID] += 1.0 / (k + float64(c.Rank))
		}
	}
	return scores
}

// weighted sums wA*scoreA + wB*scoreB; an id missing from a list scores 0 there
func weighted(listA, listB []types.ScoredCandidate, wA, wB float64) map[string]float64 {
	scores := make(map[string]float64, len(listA)+len(listB))
	for _, c := range listA {
		scores[c.ID] += wA * c.Score
	}
	for _, c := range listB {
		scores[c.ID] += wB * c.Score
	}
	return scores
}

// sortHits orders by score (descending), then id (ascending)
func sortHits(hits []types.FusedHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FusedScore != hits[j].FusedScore {
			return hits[i].FusedScore > hits[j].FusedScore
		}
		return hits[i].ID < hits[j].ID
	})
}
