package optimizer

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"replaybench/internal/domain"
)

var negInf = math.Inf(-1)

// dispatch runs one trial per paramSet, bounded to parallelism P at a time,
// following the polymarketbot strategy engine's errgroup.WithContext fan-out
// idiom. A trial whose replay fails is captured as a Trial with
// Score = -Inf and does not abort the sweep (spec.md §4.8).
func dispatch(ctx context.Context, paramSets []domain.ParameterSet, fromMs, toMs int64, run ReplayRunner, weights ScoreWeights, parallel int) []Trial {
	if parallel <= 0 {
		parallel = 4
	}

	trials := make([]Trial, len(paramSets))
	sem := make(chan struct{}, parallel)

	g, gctx := errgroup.WithContext(ctx)
	for i, ps := range paramSets {
		i, ps := i, ps
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				trials[i] = Trial{Params: ps, Score: negInf, Err: gctx.Err(), EvaluatedAt: time.Now()}
				return nil
			}
			defer func() { <-sem }()

			metrics, err := run(gctx, ps, fromMs, toMs)
			if err != nil {
				trials[i] = Trial{Params: ps, Score: negInf, Err: err, EvaluatedAt: time.Now()}
				return nil
			}
			trials[i] = Trial{Params: ps, Metrics: metrics, Score: score(metrics, weights), EvaluatedAt: time.Now()}
			return nil
		})
	}
	_ = g.Wait() // trial errors are captured per-trial, never aborts the sweep

	return trials
}
