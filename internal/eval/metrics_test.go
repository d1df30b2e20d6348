package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePerfectRanking(t *testing.T) {
	gt := []string{"a_level1", "a_level2", "a_level3"}
	rec := Score("a", []string{"a_level1", "a_level2", "a_level3", "x"}, gt, 10)

	assert.Equal(t, 3, rec.EffectiveK)
	assert.InDelta(t, 1.0, rec.Precision, 1e-12)
	assert.InDelta(t, 1.0, rec.Recall, 1e-12)
	assert.InDelta(t, 1.0, rec.NDCG, 1e-12)
	assert.InDelta(t, 1.0, rec.MRR, 1e-12)
	assert.Equal(t, gt, rec.GroundTruthIDs)
}

func TestScoreMRR(t *testing.T) {
	gt := []string{"p2"}

	rec := Score("q", []string{"p1", "p2", "p3"}, gt, 10)
	assert.InDelta(t, 0.5, rec.MRR, 1e-12)

	rec = Score("q", []string{"p1", "p3"}, gt, 10)
	assert.Zero(t, rec.MRR)
}

func TestScoreMRRUsesFullList(t *testing.T) {
	// K = 1 but the hit at rank 3 still counts for MRR
	rec := Score("q", []string{"x", "y", "a_level2"}, []string{"a_level2"}, 5)
	assert.Equal(t, 1, rec.EffectiveK)
	assert.Zero(t, rec.Precision)
	assert.Zero(t, rec.NDCG)
	assert.InDelta(t, 1.0/3, rec.MRR, 1e-12)
}

func TestScoreDegenerate(t *testing.T) {
	rec := Score("q", []string{"a", "b"}, nil, 10)
	assert.Equal(t, "q", rec.QueryID)
	assert.Zero(t, rec.EffectiveK)
	assert.Zero(t, rec.Precision)
	assert.Zero(t, rec.Recall)
	assert.Zero(t, rec.NDCG)
	assert.Zero(t, rec.MRR)
	assert.NotNil(t, rec.RetrievedIDs)
	assert.Empty(t, rec.RetrievedIDs)
	assert.NotNil(t, rec.GroundTruthIDs)
	assert.True(t, rec.Degenerate())
}

func TestScoreGradedNDCG(t *testing.T) {
	gt := []string{"a_level1", "a_level3"}
	// grades: a_level3 = 3, a_level1 = 5; retrieved in the worse order
	rec := Score("a", []string{"a_level3", "a_level1"}, gt, 2)

	dcg := 3.0/math.Log2(2) + 5.0/math.Log2(3)
	idcg := 5.0/math.Log2(2) + 3.0/math.Log2(3)
	assert.InDelta(t, dcg/idcg, rec.NDCG, 1e-12)
	assert.Less(t, rec.NDCG, 1.0)
	assert.InDelta(t, 1.0, rec.Precision, 1e-12)
}

func TestScoreEffectiveK(t *testing.T) {
	gt := []string{"a_level1", "a_level2", "a_level3", "a_level4"}

	tests := []struct {
		name          string
		retrieved     []string
		limit         int
		wantK         int
		wantPrecision float64
		wantRecall    float64
	}{
		{
			name:          "limit smaller than ground truth",
			retrieved:     []string{"a_level1", "x", "a_level2"},
			limit:         2,
			wantK:         2,
			wantPrecision: 0.5,
			wantRecall:    0.25,
		},
		{
			name:          "ground truth smaller than limit",
			retrieved:     []string{"a_level1", "x", "a_level2", "a_level3", "a_level4"},
			limit:         10,
			wantK:         4,
			wantPrecision: 0.75,
			wantRecall:    0.75,
		},
		{
			name:          "fewer results than K",
			retrieved:     []string{"a_level4"},
			limit:         10,
			wantK:         4,
			wantPrecision: 0.25,
			wantRecall:    0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Score("a", tt.retrieved, gt, tt.limit)
			assert.Equal(t, tt.wantK, rec.EffectiveK)
			assert.InDelta(t, tt.wantPrecision, rec.Precision, 1e-12)
			assert.InDelta(t, tt.wantRecall, rec.Recall, 1e-12)
		})
	}
}

func TestScoreDuplicateGroundTruth(t *testing.T) {
	rec := Score("p1", []string{"p1_level1"}, []string{"p1_level1", "p1_level1"}, 10)

	assert.Equal(t, 1, rec.EffectiveK)
	assert.InDelta(t, 1.0, rec.Precision, 1e-12)
	assert.InDelta(t, 1.0, rec.Recall, 1e-12)
	assert.InDelta(t, 1.0, rec.NDCG, 1e-12)
	assert.Equal(t, []string{"p1_level1"}, rec.GroundTruthIDs)
}
