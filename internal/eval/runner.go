package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/litsearch/pkg/types"
)

//go:generate mockgen -destination=mocks/mock_retriever.go -package=mocks github.com/dshills/litsearch/internal/eval Retriever

// Defaults for an evaluation pass
const (
	DefaultMaxLevel    = 4
	DefaultLimit       = 10
	DefaultConcurrency = 1
)

// ErrRetrieverRequired is returned when a Runner is built without a retriever
var ErrRetrieverRequired = errors.New("retriever is required")

// Retriever returns the ranked ids for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// Runner evaluates tasks against a Retriever
type Runner struct {
	retriever   Retriever
	maxLevel    int
	limit       int
	maxTasks    int
	concurrency int
	pool        *ants.Pool
	logger      zerolog.Logger
}

// Option configures a Runner
type Option func(*Runner) error

// WithMaxLevel sets the highest ground-truth level kept by filtering
func WithMaxLevel(level int) Option {
	return func(r *Runner) error {
		if level < MinLevel || level > MaxLevel {
			return fmt.Errorf("max level %d out of range [%d,%d]", level, MinLevel, MaxLevel)
		}
		r.maxLevel = level
		return nil
	}
}

// WithLimit sets the number of results requested per query
func WithLimit(limit int) Option {
	return func(r *Runner) error {
		if limit < 1 {
			return types.ErrInvalidLimit
		}
		r.limit = limit
		return nil
	}
}

// WithMaxTasks evaluates only the first n tasks. n <= 0 evaluates all.
func WithMaxTasks(n int) Option {
	return func(r *Runner) error {
		r.maxTasks = n
		return nil
	}
}

// WithConcurrency sets the worker pool size. 1 runs tasks sequentially.
func WithConcurrency(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
		return nil
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// NewRunner creates a Runner. Call Release when done.
func NewRunner(retriever Retriever, opts ...Option) (*Runner, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}

	r := &Runner{
		retriever:   retriever,
		maxLevel:    DefaultMaxLevel,
		limit:       DefaultLimit,
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Release frees the worker pool
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Run evaluates a single task. When no ground truth survives filtering the
// retriever is not called and the zero record is returned.
func (r *Runner) Run(ctx context.Context, task types.EvaluationTask) (types.MetricRecord, error) {
	filtered := FilterByMaxLevel(task.GroundTruthIDs, r.maxLevel)
	if len(filtered) == 0 {
		r.logger.Debug().Str("query_id", task.QueryID).Msg("no ground truth after filtering")
		return Score(task.QueryID, nil, nil, r.limit), nil
	}

	retrieved, err := r.retriever.Retrieve(ctx, task.QueryText, r.limit)
	if err != nil {
		return types.MetricRecord{}, fmt.Errorf("retrieve %s: %w", task.QueryID, err)
	}

	rec := Score(task.QueryID, retrieved, filtered, r.limit)
	r.logger.Debug().
		Str("query_id", task.QueryID).
		Float64("precision", rec.Precision).
		Float64("recall", rec.Recall).
		Float64("ndcg", rec.NDCG).
		Float64("mrr", rec.MRR).
		Msg("task evaluated")
	return rec, nil
}

// RunAll evaluates tasks on the worker pool. Records keep task order. The
// first error cancels the remaining tasks and is returned.
func (r *Runner) RunAll(ctx context.Context, tasks []types.EvaluationTask) ([]types.MetricRecord, error) {
	if r.maxTasks > 0 && len(tasks) > r.maxTasks {
		tasks = tasks[:r.maxTasks]
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make([]types.MetricRecord, len(tasks))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := range tasks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			rec, err := r.Run(ctx, tasks[i])
			if err != nil {
				fail(err)
				return
			}
			records[i] = rec
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit task %s: %w", tasks[i].QueryID, submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info().Int("tasks", len(records)).Msg("evaluation finished")
	return records, nil
}
