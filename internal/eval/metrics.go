package eval

import (
	"math"
	"sort"

	"github.com/dshills/litsearch/pkg/types"
)

// Score computes precision@K, recall@K, graded NDCG@K and MRR for one query.
//
// K is min(limit, |groundTruth|); a limit <= 0 means |groundTruth|. Precision,
// recall and NDCG look at retrieved[:K] only, MRR at the whole list. An empty
// ground truth yields the zero record with EffectiveK 0. Ground truth is a
// set: repeated ids count once.
func Score(queryID string, retrieved, groundTruth []string, limit int) types.MetricRecord {
	groundTruth = uniqueIDs(groundTruth)
	if len(groundTruth) == 0 {
		return zeroRecord(queryID)
	}

	k := len(groundTruth)
	if limit > 0 && limit < k {
		k = limit
	}

	gtSet := make(map[string]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		gtSet[id] = struct{}{}
	}

	top := retrieved
	if len(top) > k {
		top = top[:k]
	}

	hits := 0
	dcg := 0.0
	for i, id := range top {
		if _, ok := gtSet[id]; !ok {
			continue
		}
		hits++
		dcg += float64(Grade(id)) / math.Log2(float64(i+2))
	}

	idcg := idealDCG(groundTruth, k)
	ndcg := 0.0
	if idcg > 0 {
		ndcg = dcg / idcg
	}

	return types.MetricRecord{
		QueryID:        queryID,
		Precision:      float64(hits) / float64(k),
		Recall:         float64(hits) / float64(len(groundTruth)),
		NDCG:           ndcg,
		MRR:            reciprocalRank(retrieved, gtSet),
		EffectiveK:     k,
		RetrievedIDs:   append([]string{}, retrieved...),
		GroundTruthIDs: append([]string{}, groundTruth...),
	}
}

func zeroRecord(queryID string) types.MetricRecord {
	return types.MetricRecord{
		QueryID:        queryID,
		RetrievedIDs:   []string{},
		GroundTruthIDs: []string{},
	}
}

// uniqueIDs drops repeated ids, keeping first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// idealDCG is the DCG of the ground-truth grades sorted descending, cut at k
func idealDCG(groundTruth []string, k int) float64 {
	grades := make([]int, len(groundTruth))
	for i, id := range groundTruth {
		grades[i] = Grade(id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(grades)))
	if len(grades) > k {
		grades = grades[:k]
	}

	idcg := 0.0
	for i, g := range grades {
		idcg += float64(g) / math.Log2(float64(i+2))
	}
	return idcg
}

// reciprocalRank is 1/rank of the first relevant id (1-indexed), or 0
func reciprocalRank(retrieved []string, gtSet map[string]struct{}) float64 {
	for i, id := range retrieved {
		if _, ok := gtSet[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
