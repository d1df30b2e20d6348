package eval

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/internal/corpus"
	"github.com/dshills/litsearch/pkg/types"
)

// BuildTasks pairs every positive record with the augmented variants of the
// same paper. A task is emitted only for positive ids that have at least one
// variant; tasks follow the order of positive, ground-truth ids the order of
// augmented. Later duplicates of a positive id replace the earlier abstract;
// repeated variant ids are kept once.
func BuildTasks(positive, augmented []corpus.Record) []types.EvaluationTask {
	order := make([]string, 0, len(positive))
	texts := make(map[string]string, len(positive))
	for _, rec := range positive {
		if _, seen := texts[rec.ID]; !seen {
			order = append(order, rec.ID)
		}
		texts[rec.ID] = rec.Abstract
	}

	variants := make(map[string][]string)
	seen := make(map[string]struct{}, len(augmented))
	for _, rec := range augmented {
		if !strings.Contains(rec.ID, LevelMarker) {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		base := BaseID(rec.ID)
		variants[base] = append(variants[base], rec.ID)
	}

	tasks := make([]types.EvaluationTask, 0, len(order))
	for _, id := range order {
		gt, ok := variants[id]
		if !ok {
			continue
		}
		tasks = append(tasks, types.EvaluationTask{
			QueryID:        id,
			QueryText:      texts[id],
			GroundTruthIDs: gt,
		})
	}
	return tasks
}

// LoadTasks reads both JSONL files and builds the evaluation tasks
func LoadTasks(positivePath, augmentedPath string, logger zerolog.Logger) ([]types.EvaluationTask, error) {
	positive, err := corpus.ReadFile(positivePath, logger)
	if err != nil {
		return nil, fmt.Errorf("load positive records: %w", err)
	}
	augmented, err := corpus.ReadFile(augmentedPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load augmented records: %w", err)
	}

	tasks := BuildTasks(positive, augmented)
	logger.Debug().
		Int("positive", len(positive)).
		Int("augmented", len(augmented)).
		Int("tasks", len(tasks)).
		Msg("evaluation tasks built")
	return tasks, nil
}
