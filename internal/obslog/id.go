package obslog

import "github.com/google/uuid"

// NewRunID generates a unique identifier for an optimization run (or a
// standalone replay invoked directly from the CLI).
func NewRunID() string {
	return "run_" + uuid.NewString()
}

// NewReplayID generates a unique identifier for one dispatched replay
// within an optimization run.
func NewReplayID() string {
	return "replay_" + uuid.NewString()
}
