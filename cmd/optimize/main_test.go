package main

import (
	"os"
	"path/filepath"
	"testing"

	"replaybench/internal/config"
	"replaybench/internal/dataloader"
	"replaybench/internal/domain"
	"replaybench/internal/optimizer"
)

func TestToOptimizationResultsSortsTrialsByScoreDescending(t *testing.T) {
	outcome := optimizer.Outcome{Trials: []optimizer.Trial{
		{Params: domain.ParameterSet{"x": 1}, Score: 0.2},
		{Params: domain.ParameterSet{"x": 2}, Score: 0.9},
	}}
	results := toOptimizationResults("run-1", outcome)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RankedScore != 0.9 || results[1].RankedScore != 0.2 {
		t.Fatalf("expected descending scores, got %v then %v", results[0].RankedScore, results[1].RankedScore)
	}
}

func TestToOptimizationResultsAveragesWalkForwardStability(t *testing.T) {
	outcome := optimizer.Outcome{WalkForward: &optimizer.WalkForwardResult{
		Windows: []optimizer.WindowResult{
			{StabilityScore: 0.6},
			{StabilityScore: 0.8},
		},
		VotedParams: domain.ParameterSet{"x": 1},
	}}
	results := toOptimizationResults("run-1", outcome)
	if len(results) != 1 {
		t.Fatalf("expected 1 aggregate result, got %d", len(results))
	}
	if got := results[0].RankedScore; got != 0.7 {
		t.Fatalf("expected averaged stability 0.7, got %v", got)
	}
}

func TestLoadParamGridEmptyPathReturnsNil(t *testing.T) {
	grid, err := loadParamGrid("")
	if err != nil || grid != nil {
		t.Fatalf("expected nil grid with no error, got %v, %v", grid, err)
	}
}

func TestLoadParamGridParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	if err := os.WriteFile(path, []byte("confluence_threshold: [50, 60, 70]\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	grid, err := loadParamGrid(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid["confluence_threshold"]) != 3 {
		t.Fatalf("expected 3 values, got %v", grid["confluence_threshold"])
	}
}

func TestLoadParamRangesParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranges.yaml")
	contents := "confluence_threshold:\n  kind: float\n  min: 40\n  max: 90\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	ranges, err := loadParamRanges(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := ranges["confluence_threshold"]
	if !ok {
		t.Fatal("expected confluence_threshold range to be present")
	}
	if r.Kind != "float" || r.Min != 40 || r.Max != 90 {
		t.Fatalf("unexpected range: %+v", r)
	}
}

func TestDefaultSourceFallsBackToSyntheticWithNoBackendsConfigured(t *testing.T) {
	cfg := &config.EngineConfig{}
	src := defaultSource(cfg)
	if _, ok := src.(dataloader.SyntheticSource); !ok {
		t.Fatalf("expected SyntheticSource fallback, got %T", src)
	}
}

func TestDefaultSourcePrefersRemoteOverSyntheticWhenConfigured(t *testing.T) {
	cfg := &config.EngineConfig{HistoryServiceURL: "http://history.internal"}
	src := defaultSource(cfg)
	if _, ok := src.(*dataloader.RemoteSource); !ok {
		t.Fatalf("expected RemoteSource, got %T", src)
	}
}
