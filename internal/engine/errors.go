package engine

import "errors"

// ErrNoStrategies marks a replay configured with zero active strategies.
// Fatal before the loop starts, distinct from domain.ErrConfigError since it
// is an engine-assembly error rather than a file/schema parse failure.
var ErrNoStrategies = errors.New("engine: no strategies configured")
