package config

import "errors"

// ErrUnknownParam is returned when a parameter set references a key outside
// its strategy's declared schema.
var ErrUnknownParam = errors.New("unknown parameter")
