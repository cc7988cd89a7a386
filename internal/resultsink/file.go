package resultsink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"replaybench/internal/domain"
)

// FileSink writes spec.md §6's documented per-replay output artifacts
// (summary.json, trades.csv, equity.json) and the optimization results CSV
// under Dir, following libs/experiment/store.go's atomic
// write-to-tmp-then-rename pattern so a crash mid-write never leaves a
// half-written artifact behind.
type FileSink struct {
	Dir string
}

type replaySummary struct {
	RunID            string             `json:"run_id"`
	Config           domain.ReplayConfig `json:"config"`
	StartTime        string             `json:"start_time"`
	EndTime          string             `json:"end_time"`
	RuntimeMs        int64              `json:"runtime_ms"`
	Stats            domain.Stats       `json:"stats"`
	InitialBalance   string             `json:"initial_balance"`
	FinalBalance     string             `json:"final_balance"`
	TotalReturn      string             `json:"total_return"`
	TotalReturnPct   float64            `json:"total_return_percent"`
	Status           string             `json:"status"`
}

// WriteReplay writes summary.json, trades.csv, and equity.json. On a
// "PARTIAL" result, the layout is identical — only summary.status differs
// — per spec.md §6.
func (f *FileSink) WriteReplay(ctx context.Context, result domain.ReplayResult) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("resultsink: mkdir output dir: %w", err)
	}

	totalReturn := result.FinalBalance.Sub(result.InitialBalance)
	totalReturnPct := 0.0
	if result.InitialBalance.IsPositive() {
		f64, _ := totalReturn.Div(result.InitialBalance).Float64()
		totalReturnPct = f64 * 100
	}

	now := time.Now().UTC()
	summary := replaySummary{
		RunID:          result.RunID,
		Config:         result.Config,
		StartTime:      now.Add(-time.Duration(result.RuntimeMs) * time.Millisecond).Format(time.RFC3339),
		EndTime:        now.Format(time.RFC3339),
		RuntimeMs:      result.RuntimeMs,
		Stats:          result.Stats,
		InitialBalance: result.InitialBalance.StringFixed(2),
		FinalBalance:   result.FinalBalance.StringFixed(2),
		TotalReturn:    totalReturn.StringFixed(2),
		TotalReturnPct: totalReturnPct,
		Status:         result.Status,
	}

	if err := writeJSONAtomic(filepath.Join(f.Dir, "summary.json"), summary); err != nil {
		return err
	}
	if err := f.writeTradesCSV(result.Trades); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(f.Dir, "equity.json"), equityRows(result.EquityCurve)); err != nil {
		return err
	}
	return nil
}

type equityRow struct {
	TimestampMs    int64   `json:"timestamp"`
	Balance        string  `json:"balance"`
	Equity         string  `json:"equity"`
	Drawdown       string  `json:"drawdown"`
	DrawdownPct    float64 `json:"drawdown_percent"`
}

func equityRows(points []domain.EquityPoint) []equityRow {
	out := make([]equityRow, len(points))
	for i, p := range points {
		out[i] = equityRow{
			TimestampMs: p.TimestampMs,
			Balance:     p.Balance.StringFixed(2),
			Equity:      p.Equity.StringFixed(2),
			Drawdown:    p.Drawdown.StringFixed(2),
			DrawdownPct: p.DrawdownPct,
		}
	}
	return out
}

var tradesHeader = []string{
	"ticket", "symbol", "direction", "strategy", "entry_price", "exit_price",
	"entry_time", "exit_time", "sl", "tp", "volume", "profit",
	"duration_minutes", "pips", "risk_reward",
}

func (f *FileSink) writeTradesCSV(trades []domain.Trade) error {
	path := filepath.Join(f.Dir, "trades.csv")
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("resultsink: create trades.csv: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(tradesHeader); err != nil {
		file.Close()
		return fmt.Errorf("resultsink: write trades.csv header: %w", err)
	}
	for _, tr := range trades {
		row := []string{
			fmt.Sprintf("%d", tr.Ticket),
			tr.Symbol,
			string(tr.Direction),
			tr.Strategy,
			tr.EntryPrice.StringFixed(5),
			tr.ExitPrice.StringFixed(5),
			time.UnixMilli(tr.EntryTimeMs).UTC().Format(time.RFC3339),
			time.UnixMilli(tr.ExitTimeMs).UTC().Format(time.RFC3339),
			tr.StopLoss.StringFixed(5),
			tr.TakeProfit.StringFixed(5),
			tr.Volume.StringFixed(2),
			tr.Profit.StringFixed(2),
			fmt.Sprintf("%.2f", tr.DurationMinutes),
			fmt.Sprintf("%.2f", tr.Pips),
			fmt.Sprintf("%.2f", tr.RiskReward),
		}
		if err := w.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("resultsink: write trade row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("resultsink: flush trades.csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("resultsink: close trades.csv: %w", err)
	}
	return os.Rename(tmp, path)
}

var optimizationHeader = []string{
	"rank", "score", "win_rate", "profit_factor", "sharpe_ratio", "max_dd_pct", "total_net_profit",
}

// WriteOptimizationCSV writes the ranked optimization results CSV named in
// spec.md §6, with one trailing column per distinct parameter key observed
// across results (sorted for determinism) appended after the fixed metric
// columns.
func (f *FileSink) WriteOptimizationCSV(path string, results []domain.OptimizationResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("resultsink: mkdir: %w", err)
	}

	paramKeys := collectParamKeys(results)
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("resultsink: create optimization csv: %w", err)
	}

	w := csv.NewWriter(file)
	header := append(append([]string(nil), optimizationHeader...), paramKeys...)
	if err := w.Write(header); err != nil {
		file.Close()
		return fmt.Errorf("resultsink: write optimization csv header: %w", err)
	}

	for i, r := range results {
		row := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.6f", r.RankedScore),
			fmt.Sprintf("%.4f", r.Metrics.WinRate),
			fmt.Sprintf("%.4f", r.Metrics.ProfitFactor),
			fmt.Sprintf("%.4f", r.Metrics.Sharpe),
			fmt.Sprintf("%.4f", r.Metrics.MaxDrawdownPct),
			fmt.Sprintf("%.2f", r.Metrics.TotalPnL),
		}
		for _, k := range paramKeys {
			row = append(row, fmt.Sprintf("%v", r.ParamSet[k]))
		}
		if err := w.Write(row); err != nil {
			file.Close()
			return fmt.Errorf("resultsink: write optimization row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("resultsink: flush optimization csv: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("resultsink: close optimization csv: %w", err)
	}
	return os.Rename(tmp, path)
}

func collectParamKeys(results []domain.OptimizationResult) []string {
	set := make(map[string]struct{})
	for _, r := range results {
		for k := range r.ParamSet {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSONAtomic(path string, v any) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("resultsink: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("resultsink: write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
