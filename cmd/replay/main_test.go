package main

import "testing"

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" EURUSD, GBPUSD ,,USDJPY")
	want := []string{"EURUSD", "GBPUSD", "USDJPY"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseDateRejectsEmpty(t *testing.T) {
	if _, err := parseDate(""); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestParseDateAcceptsISODate(t *testing.T) {
	d, err := parseDate("2026-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2026 || d.Month() != 1 || d.Day() != 15 {
		t.Fatalf("unexpected parsed date: %v", d)
	}
}

func TestBuildSourceUnknownKindErrors(t *testing.T) {
	if _, err := buildSource("carrier-pigeon", "", nil); err == nil {
		t.Fatal("expected error for unknown data source")
	}
}

func TestBuildSourceFileRequiresPath(t *testing.T) {
	if _, err := buildSource("file", "", nil); err == nil {
		t.Fatal("expected error when --data-path is empty")
	}
}
