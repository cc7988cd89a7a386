package dataloader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"replaybench/internal/domain"
)

// FileSource loads one symbol's candles from a single tabular CSV file,
// adapted from the donor's dataset.LoadCSV column-detection idiom but
// tolerant of malformed rows (dropped, not fatal) and auto-detecting the
// timestamp encoding rather than requiring a fixed date layout.
//
// Expected header (case-insensitive): ts,open,high,low,close,volume — the ts
// column accepts epoch seconds, epoch milliseconds, or an ISO 8601 string.
type FileSource struct {
	Path      string
	Timeframe domain.Timeframe
}

func (f FileSource) Load(ctx context.Context, symbol string, from, to time.Time, _ domain.Timeframe) ([]domain.Candle, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", domain.ErrDataUnavailable, f.Path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrDataUnavailable, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := func(name string) (int, bool) { i, ok := col[name]; return i, ok }

	tsCol, _ := idx("ts")
	openCol, _ := idx("open")
	highCol, _ := idx("high")
	lowCol, _ := idx("low")
	closeCol, _ := idx("close")
	volCol, hasVol := idx("volume")

	var rows []domain.Candle
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed line: dropped, not fatal
		}

		tsMs, err := parseTimestamp(strings.TrimSpace(row[tsCol]))
		if err != nil {
			continue
		}
		if !from.IsZero() && tsMs < from.UnixMilli() {
			continue
		}
		if !to.IsZero() && tsMs > to.UnixMilli() {
			continue
		}

		o, errO := strconv.ParseFloat(strings.TrimSpace(row[openCol]), 64)
		h, errH := strconv.ParseFloat(strings.TrimSpace(row[highCol]), 64)
		l, errL := strconv.ParseFloat(strings.TrimSpace(row[lowCol]), 64)
		c, errC := strconv.ParseFloat(strings.TrimSpace(row[closeCol]), 64)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		var v float64
		if hasVol {
			v, _ = strconv.ParseFloat(strings.TrimSpace(row[volCol]), 64)
		}

		rows = append(rows, domain.Candle{
			Symbol: symbol, TimestampMs: tsMs,
			Open: o, High: h, Low: l, Close: c, Volume: v,
			Timeframe: f.Timeframe,
		})
	}

	out := normalize(ctx, symbol, rows)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid rows for %s in %q", domain.ErrDataUnavailable, symbol, f.Path)
	}
	return out, nil
}
