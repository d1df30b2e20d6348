package eval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dshills/litsearch/pkg/types"
)

// Summary aggregates metric records. Means are taken over records with
// ground truth; degenerate records are only counted.
type Summary struct {
	Tasks      int     `json:"tasks" yaml:"tasks"`
	Evaluated  int     `json:"evaluated" yaml:"evaluated"`
	Degenerate int     `json:"degenerate" yaml:"degenerate"`
	Precision  float64 `json:"mean_precision_at_k" yaml:"mean_precision_at_k"`
	Recall     float64 `json:"mean_recall_at_k" yaml:"mean_recall_at_k"`
	NDCG       float64 `json:"mean_ndcg_at_k" yaml:"mean_ndcg_at_k"`
	MRR        float64 `json:"mean_mrr" yaml:"mean_mrr"`
}

// Summarize computes the mean of each metric over non-degenerate records
func Summarize(records []types.MetricRecord) Summary {
	s := Summary{Tasks: len(records)}
	for i := range records {
		rec := &records[i]
		if rec.Degenerate() {
			s.Degenerate++
			continue
		}
		s.Evaluated++
		s.Precision += rec.Precision
		s.Recall += rec.Recall
		s.NDCG += rec.NDCG
		s.MRR += rec.MRR
	}
	if s.Evaluated > 0 {
		n := float64(s.Evaluated)
		s.Precision /= n
		s.Recall /= n
		s.NDCG /= n
		s.MRR /= n
	}
	return s
}

// Report is the serialized output of an evaluation pass
type Report struct {
	Summary Summary              `json:"summary" yaml:"summary"`
	Records []types.MetricRecord `json:"records" yaml:"records"`
}

// Report formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// WriteReport writes the summary and records to w in the given format
func WriteReport(w io.Writer, format string, records []types.MetricRecord, summary Summary) error {
	report := Report{Summary: summary, Records: records}
	if report.Records == nil {
		report.Records = []types.MetricRecord{}
	}

	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
