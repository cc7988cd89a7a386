// Package dataloader implements the unified historical-candle contract
// load(symbol, [from,to], timeframe) -> []Candle over four sources: a
// tabular file, a database table, a remote history service, and a seeded
// synthetic generator. Grounded on the donor's libs/dataset (CSVDataSource
// file parsing), libs/marketdata (Provider/Client fallback-and-cache shape),
// and libs/database (pgx connection pooling).
package dataloader

import (
	"context"
	"sort"
	"time"

	"replaybench/internal/domain"
	"replaybench/internal/obslog"
)

// Source is the contract every loader implementation satisfies.
type Source interface {
	Load(ctx context.Context, symbol string, from, to time.Time, timeframe domain.Timeframe) ([]domain.Candle, error)
}

// normalize sorts ascending by timestamp, deduplicates by timestamp (the
// later row in input order wins), and drops rows that violate the candle
// invariants, logging each drop rather than failing the whole load — the
// same row-level tolerance the donor's CSVDataSource.LoadCSV stops short of
// (it hard-fails on the first bad row) but which spec.md §4.7 requires.
func normalize(ctx context.Context, symbol string, rows []domain.Candle) []domain.Candle {
	byTs := make(map[int64]domain.Candle, len(rows))
	for _, c := range rows {
		byTs[c.TimestampMs] = c // later occurrence overwrites earlier
	}

	out := make([]domain.Candle, 0, len(byTs))
	for _, c := range byTs {
		if err := c.Validate(); err != nil {
			obslog.Event(ctx, "warn", "candle_dropped", map[string]any{"symbol": symbol, "error": err})
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out
}

// parseTimestamp auto-detects epoch seconds, epoch milliseconds, or an ISO
// 8601 / RFC3339 timestamp string and returns epoch milliseconds.
func parseTimestamp(s string) (int64, error) {
	if ms, ok := parseEpoch(s); ok {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), nil
		}
	}
	return 0, errUnrecognizedTimestamp(s)
}
