package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/warmline/internal/resilience"
)

// Outcome is the result of processing one entity.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeErrored   Outcome = "errored"
)

// Result describes how one entity was processed.
type Result struct {
	ID      string
	Label   string
	Outcome Outcome
	Detail  string
	Err     error
}

// Summary tallies a stage run.
type Summary struct {
	Stage     string
	DryRun    bool
	Processed int
	Succeeded int
	Skipped   int
	Errored   int

	// Aborted is set when a fatal error or cancellation stopped the batch
	// before every entity was processed. Err holds the cause.
	Aborted bool
	Err     error

	// Counters holds stage-specific tallies such as "extracted" or
	// "apollo_matches".
	Counters map[string]int
	Results  []Result
}

func newSummary(stage string, dryRun bool) *Summary {
	return &Summary{Stage: stage, DryRun: dryRun, Counters: make(map[string]int)}
}

// Count adds n to a stage counter.
func (s *Summary) Count(name string, n int) {
	s.Counters[name] += n
}

func (s *Summary) add(r Result) {
	s.Processed++
	switch r.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Errored++
	}
	s.Results = append(s.Results, r)
}

// OK reports whether the run finished with no entity errors and no fatal
// condition.
func (s *Summary) OK() bool {
	return s.Errored == 0 && !s.Aborted
}

// Error returns a non-nil error when the run was not OK.
func (s *Summary) Error() error {
	switch {
	case s.Aborted && s.Err != nil:
		return eris.Wrapf(s.Err, "%s: aborted", s.Stage)
	case s.Aborted:
		return eris.Errorf("%s: aborted", s.Stage)
	case s.Errored > 0:
		return eris.Errorf("%s: %d of %d entities failed", s.Stage, s.Errored, s.Processed)
	}
	return nil
}

// batch processes items one at a time in order, pacing calls with a rate
// limiter. The first item runs immediately.
type batch[T any] struct {
	stage    string
	delay    time.Duration
	describe func(T) (id, label string)
	report   func(Result)
}

func (b batch[T]) run(ctx context.Context, sum *Summary, items []T, fn func(context.Context, T) Result) *Summary {
	limit := rate.Inf
	if b.delay > 0 {
		limit = rate.Every(b.delay)
	}
	limiter := rate.NewLimiter(limit, 1)
	log := zap.L().With(zap.String("stage", b.stage))

	for i, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			sum.Aborted, sum.Err = true, ctxErr(ctx, err)
			break
		}
		id, label := b.describe(item)

		r := fn(ctx, item)
		r.ID, r.Label = id, label
		if r.Err != nil {
			r.Outcome = OutcomeErrored
		}
		if r.Outcome == "" {
			r.Outcome = OutcomeSucceeded
		}
		sum.add(r)

		fields := []zap.Field{
			zap.String("id", id),
			zap.String("label", label),
			zap.String("outcome", string(r.Outcome)),
			zap.Int("position", i+1),
			zap.Int("total", len(items)),
		}
		if r.Detail != "" {
			fields = append(fields, zap.String("detail", r.Detail))
		}
		if r.Err != nil {
			log.Error("pipeline: entity failed", append(fields, zap.Error(r.Err))...)
		} else {
			log.Info("pipeline: entity processed", fields...)
		}
		if b.report != nil {
			b.report(r)
		}

		if r.Err != nil && (resilience.IsFatal(r.Err) || errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)) {
			sum.Aborted, sum.Err = true, r.Err
			log.Error("pipeline: aborting batch", zap.Int("remaining", len(items)-i-1), zap.Error(r.Err))
			break
		}
	}
	return sum
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
