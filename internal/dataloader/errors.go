package dataloader

import (
	"fmt"
	"strconv"
)

func errUnrecognizedTimestamp(s string) error {
	return fmt.Errorf("dataloader: unrecognized timestamp format %q", s)
}

// parseEpoch classifies a numeric timestamp string as seconds or
// milliseconds since the epoch by digit count: ten digits or fewer is
// seconds (covers dates up to the year 2286), eleven to thirteen is
// milliseconds.
func parseEpoch(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	n := len(s)
	if s[0] == '-' {
		n--
	}
	switch {
	case n <= 10:
		return v * 1000, true
	case n <= 13:
		return v, true
	default:
		return 0, false
	}
}
