package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/litsearch/pkg/types"
)

func TestFuseRRF(t *testing.T) {
	t.Run("worked example", func(t *testing.T) {
		listA := ranked([]string{"x", "a"}, []float64{0.9, 0.8})
		listB := ranked([]string{"b", "c", "x"}, []float64{3, 2, 1})

		hits := mustFuse(t, listA, listB, PolicyRRF, Params{K: 60}, 10)
		require.NotEmpty(t, hits)
		assert.Equal(t, "x", hits[0].ID)
		assert.InDelta(t, 1.0/60+1.0/62, hits[0].FusedScore, 1e-12)
		assert.InDelta(t, 0.03280, hits[0].FusedScore, 1e-5)
	})

	t.Run("default k", func(t *testing.T) {
		hits := mustFuse(t, ranked([]string{"x"}, nil), nil, PolicyRRF, Params{}, 0)
		require.Len(t, hits, 1)
		assert.InDelta(t, 1.0/60, hits[0].FusedScore, 1e-12)
	})

	t.Run("ignores raw scores", func(t *testing.T) {
		listA := []types.ScoredCandidate{{ID: "a", Score: 1000, Rank: 1}}
		listB := []types.ScoredCandidate{{ID: "b", Score: 0.001, Rank: 0}}
		hits := mustFuse(t, listA, listB, PolicyRRF, Params{K: 60}, 2)
		assert.Equal(t, []string{"b", "a"}, ids(hits))
	})
}

func TestFuseWeighted(t *testing.T) {
	listA := ranked([]string{"a", "b"}, []float64{0.8, 0.4})
	listB := ranked([]string{"b", "c"}, []float64{0.9, 0.5})

	hits := mustFuse(t, listA, listB, PolicyWeighted, Params{WeightA: 0.7, WeightB: 1.0}, 10)
	require.Len(t, hits, 3)

	// b = 0.7*0.4 + 0.9 = 1.18; a = 0.56; c = 0.5
	assert.Equal(t, []string{"b", "a", "c"}, ids(hits))
	assert.InDelta(t, 1.18, hits[0].FusedScore, 1e-9)
	assert.InDelta(t, 0.56, hits[1].FusedScore, 1e-9)
	assert.InDelta(t, 0.5, hits[2].FusedScore, 1e-9)
}

func TestFuseTieBreakDeterministic(t *testing.T) {
	listA := ranked([]string{"zeta", "beta"}, []float64{0.5, 0.5})
	listB := ranked([]string{"alpha", "gamma"}, []float64{0.5, 0.5})

	for run := 0; run < 20; run++ {
		hits := mustFuse(t, listA, listB, PolicyWeighted, Params{WeightA: 1, WeightB: 1}, 0)
		assert.Equal(t, []string{"alpha", "beta", "gamma", "zeta"}, ids(hits))

		rrf := mustFuse(t, listA, listB, PolicyRRF, Params{}, 0)
		// rank 0: alpha, zeta; rank 1: beta, gamma
		assert.Equal(t, []string{"alpha", "zeta", "beta", "gamma"}, ids(rrf))
	}
}

func TestFuseLimit(t *testing.T) {
	listA := ranked([]string{"a", "b", "c", "d"}, nil)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"truncates", 2, 2},
		{"larger than input", 10, 4},
		{"zero returns all", 0, 4},
		{"negative returns all", -1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, mustFuse(t, listA, nil, PolicyRRF, Params{}, tt.limit), tt.want)
		})
	}

	assert.Empty(t, mustFuse(t, nil, nil, PolicyWeighted, Params{}, 5))
}

func TestFuseUnknownPolicy(t *testing.T) {
	listA := ranked([]string{"a"}, []float64{1})

	for _, policy := range []Policy{"", "borda", "RRF"} {
		t.Run(string(policy), func(t *testing.T) {
			hits, err := Fuse(listA, nil, policy, Params{}, 0)
			assert.ErrorIs(t, err, types.ErrUnknownPolicy)
			assert.Nil(t, hits)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" RRF ")
	require.NoError(t, err)
	assert.Equal(t, PolicyRRF, p)

	p, err = ParsePolicy("weighted")
	require.NoError(t, err)
	assert.Equal(t, PolicyWeighted, p)

	_, err = ParsePolicy("borda")
	assert.ErrorIs(t, err, types.ErrUnknownPolicy)
}

func ids(hits []types.FusedHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func mustFuse(t *testing.T, listA, listB []types.ScoredCandidate, policy Policy, params Params, limit int) []types.FusedHit {
	t.Helper()
	hits, err := Fuse(listA, listB, policy, params, limit)
	require.NoError(t, err)
	return hits
}

// ranked assigns 0-based ranks in list order
func ranked(ids []string, scores []float64) []types.ScoredCandidate {
	out := make([]types.ScoredCandidate, len(ids))
	for i, id := range ids {
		var score float64
		if i < len(scores) {
			score = scores[i]
		}
		out[i] = types.ScoredCandidate{ID: id, Score: score, Rank: i}
	}
	return out
}
