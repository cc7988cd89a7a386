package dataloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"replaybench/internal/domain"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestFileSourceParsesEpochSecondsAndDropsBadRows(t *testing.T) {
	csv := "ts,open,high,low,close,volume\n" +
		"1700000000,100,101,99,100.5,1000\n" +
		"not-a-timestamp,100,101,99,100.5,1000\n" + // dropped: unparseable ts
		"1700000060,100.5,102,100,101.8,1200\n" +
		"1700000060,100.5,102,100,102.0,1300\n" // duplicate ts: later row wins

	src := FileSource{Path: writeCSV(t, csv), Timeframe: domain.M1}
	out, err := src.Load(context.Background(), "EURUSD", time.Time{}, time.Time{}, domain.M1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 deduplicated rows, got %d: %+v", len(out), out)
	}
	if out[0].TimestampMs != 1700000000000 {
		t.Fatalf("expected epoch-seconds converted to millis, got %d", out[0].TimestampMs)
	}
	if out[1].Close != 102.0 {
		t.Fatalf("expected the later duplicate row (close=102.0) to win, got %v", out[1].Close)
	}
}

func TestFileSourceMissingFileIsDataUnavailable(t *testing.T) {
	src := FileSource{Path: "/nonexistent/path.csv", Timeframe: domain.M1}
	_, err := src.Load(context.Background(), "EURUSD", time.Time{}, time.Time{}, domain.M1)
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}
