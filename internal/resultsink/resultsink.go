// Package resultsink persists replay and optimization results, grounded on
// libs/experiment/store.go's Experiment/Run tracking (atomic write, typed
// Params/Metrics records) generalized from a single JSON-file-per-store
// layout into the two concrete backends spec.md §6 names: a file sink
// writing the documented output artifacts, and a Postgres sink persisting
// the documented relational schema.
package resultsink

import (
	"context"

	"replaybench/internal/domain"
)

// ReplaySink persists one completed (or partially-completed) replay.
type ReplaySink interface {
	WriteReplay(ctx context.Context, result domain.ReplayResult) error
}

// OptimizationSink persists one optimizer sweep's run header and ranked
// results.
type OptimizationSink interface {
	WriteOptimizationRun(ctx context.Context, run domain.OptimizationRun, results []domain.OptimizationResult) error
}
