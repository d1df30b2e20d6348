package types

// EvaluationTask pairs a query with the ids of its graded ground-truth variants
type EvaluationTask struct {
	QueryID        string   `json:"query_id" yaml:"query_id"`
	QueryText      string   `json:"query_text" yaml:"query_text"`
	GroundTruthIDs []string `json:"ground_truth_ids" yaml:"ground_truth_ids"`
}

// MetricRecord holds the retrieval metrics for one query
type MetricRecord struct {
	QueryID        string   `json:"query_id" yaml:"query_id"`
	Precision      float64  `json:"precision_at_k" yaml:"precision_at_k"`
	Recall         float64  `json:"recall_at_k" yaml:"recall_at_k"`
	NDCG           float64  `json:"ndcg_at_k" yaml:"ndcg_at_k"`
	MRR            float64  `json:"mrr" yaml:"mrr"`
	EffectiveK     int      `json:"top_k" yaml:"top_k"`
	RetrievedIDs   []string `json:"retrieved_ids" yaml:"retrieved_ids"`
	GroundTruthIDs []string `json:"ground_truth_ids" yaml:"ground_truth_ids"` // Filtered set
}

// Degenerate reports whether the record was produced without any ground truth
func (m *MetricRecord) Degenerate() bool {
	return m.EffectiveK == 0
}
