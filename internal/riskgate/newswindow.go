package riskgate

import (
	"context"
	"sync"
	"time"
)

// Interval is a half-open [Start, End) UTC window to avoid trading in.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// NewsWindowSource resolves the avoid-intervals for a symbol/date, adapted
// from libs/calendar's Source.FetchEvents shape but narrowed to the single
// method this gate needs.
type NewsWindowSource interface {
	Avoid(ctx context.Context, symbol string, date time.Time) ([]Interval, error)
}

// NewsWindowGate wraps a NewsWindowSource with a per-(symbol,date) failure
// cache. Per the spec's Open Question resolution, a lookup failure disables
// the gate only for that single cache entry, never globally — the donor's
// own calendar fallback disabled itself session-wide on first network
// error, which this module deliberately does not replicate.
type NewsWindowGate struct {
	source NewsWindowSource

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

type cacheKey struct {
	symbol string
	date   string // YYYY-MM-DD
}

type cacheEntry struct {
	intervals []Interval
	failed    bool
}

func NewNewsWindowGate(source NewsWindowSource) *NewsWindowGate {
	return &NewsWindowGate{source: source, cache: make(map[cacheKey]cacheEntry)}
}

// Blocked reports whether the given timestamp falls inside an avoid window
// for the symbol's date. A failed lookup (cached per symbol/date) degrades
// to "not blocked" rather than halting the replay, since structural errors
// are fatal but data-loader-adjacent lookups are not.
func (g *NewsWindowGate) Blocked(ctx context.Context, symbol string, at time.Time) bool {
	date := at.UTC().Truncate(24 * time.Hour)
	key := cacheKey{symbol: symbol, date: date.Format("2006-01-02")}

	g.mu.Lock()
	entry, cached := g.cache[key]
	g.mu.Unlock()

	if !cached {
		intervals, err := g.source.Avoid(ctx, symbol, date)
		entry = cacheEntry{intervals: intervals, failed: err != nil}
		g.mu.Lock()
		g.cache[key] = entry
		g.mu.Unlock()
	}

	if entry.failed {
		return false
	}
	for _, iv := range entry.intervals {
		if iv.Contains(at) {
			return true
		}
	}
	return false
}
