package riskgate

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVNewsSource reads a ForexFactory-style economic calendar CSV with
// columns `currency,date,time,impact,event,avoid_minutes_before,avoid_minutes_after`,
// adapted from libs/calendar's CSVSource column-detection idiom, and maps a
// symbol to the currencies it is sensitive to (e.g. "EURUSD" -> {EUR, USD}).
type CSVNewsSource struct {
	filePath        string
	symbolCurrencies map[string][]string
	minImpact       string
}

// NewCSVNewsSource builds a source over the given file. symbolCurrencies
// maps a trading symbol to the currency codes whose high-impact releases
// should gate it; minImpact filters out releases below "low"/"medium"/"high".
func NewCSVNewsSource(filePath string, symbolCurrencies map[string][]string, minImpact string) *CSVNewsSource {
	return &CSVNewsSource{filePath: filePath, symbolCurrencies: symbolCurrencies, minImpact: minImpact}
}

func (c *CSVNewsSource) Avoid(_ context.Context, symbol string, date time.Time) ([]Interval, error) {
	f, err := os.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("riskgate: open news calendar %q: %w", c.filePath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("riskgate: read news calendar header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	currencies := c.symbolCurrencies[symbol]
	var out []Interval

	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		currency := strings.ToUpper(get(row, "currency"))
		if !containsCurrency(currencies, currency) {
			continue
		}
		if !impactAtLeast(get(row, "impact"), c.minImpact) {
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04", get(row, "date")+" "+get(row, "time"))
		if err != nil {
			continue
		}
		if !sameUTCDate(ts, date) {
			continue
		}
		before := parseMinutesOr(get(row, "avoid_minutes_before"), 30)
		after := parseMinutesOr(get(row, "avoid_minutes_after"), 30)
		out = append(out, Interval{
			Start: ts.Add(-time.Duration(before) * time.Minute),
			End:   ts.Add(time.Duration(after) * time.Minute),
		})
	}
	return out, nil
}

func containsCurrency(currencies []string, c string) bool {
	for _, x := range currencies {
		if strings.EqualFold(x, c) {
			return true
		}
	}
	return false
}

var impactRank = map[string]int{"low": 1, "medium": 2, "high": 3}

func impactAtLeast(impact, min string) bool {
	if min == "" {
		return true
	}
	return impactRank[strings.ToLower(impact)] >= impactRank[strings.ToLower(min)]
}

func sameUTCDate(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

func parseMinutesOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
