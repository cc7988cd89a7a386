package engine

import (
	"fmt"
	"strings"

	"replaybench/internal/config"
	"replaybench/internal/domain"
	"replaybench/internal/riskgate"
	"replaybench/internal/signal"
	"replaybench/internal/structure"
)

// Preset names accepted by the --strategy flag. "low" runs an intraday
// confluence stack (H1 bias / M15 intermediate / M5 entries); "high" runs a
// swing stack (D1 bias / H4 intermediate / H1 entries). Both share the same
// analyzer shape and signal defaults — only the timeframe triplet differs.
const (
	PresetLow  = "low"
	PresetHigh = "high"
)

func preset(name string) (StrategyConfig, bool) {
	analyzer := structure.Analyzer{PivotLeft: 3, PivotRight: 3, Lookback: 50}
	base := StrategyConfig{
		Name:           name,
		HTFAnalyzer:    analyzer,
		ITFAnalyzer:    analyzer,
		LTFAnalyzer:    analyzer,
		HTFBars:        200,
		ITFBars:        200,
		LTFBars:        200,
		SignalParams:   signal.DefaultParams(),
		RiskGateConfig: riskgate.Config{ConfluenceThreshold: 60, MaxConcurrentPerSymbol: 3, MaxDailyTrades: 10},
	}
	switch name {
	case PresetLow:
		base.HTFTimeframe, base.ITFTimeframe, base.LTFTimeframe = domain.H1, domain.M15, domain.M5
		return base, true
	case PresetHigh:
		base.HTFTimeframe, base.ITFTimeframe, base.LTFTimeframe = domain.D1, domain.H4, domain.H1
		return base, true
	default:
		return StrategyConfig{}, false
	}
}

// ResolveStrategies parses the --strategy flag's "low", "high", or
// comma-separated "low,high" form into one StrategyConfig per named preset,
// in the order given. Duplicate names are rejected: a replay has no use for
// running the same timeframe stack twice.
func ResolveStrategies(value string) ([]StrategyConfig, error) {
	names := strings.Split(value, ",")
	seen := make(map[string]bool, len(names))
	out := make([]StrategyConfig, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("engine: duplicate strategy preset %q", name)
		}
		seen[name] = true
		cfg, ok := preset(name)
		if !ok {
			return nil, fmt.Errorf("engine: unknown strategy preset %q (want %q, %q, or a comma-separated combination)", name, PresetLow, PresetHigh)
		}
		out = append(out, cfg)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("engine: --strategy must name at least one preset")
	}
	return out, nil
}

// ParamSchema declares the tunable key space the optimizer is allowed to
// search over. Every key maps onto a SignalParams or RiskGateConfig field;
// unknown keys are rejected by config.Schema.Validate before a replay ever
// runs.
func ParamSchema() config.Schema {
	defaults := signal.DefaultParams()
	return config.Schema{
		StrategyID: "confluence",
		Params: []config.ParamSpec{
			{Name: "confluence_threshold", Kind: config.KindFloat, Default: defaults.ConfluenceThreshold},
			{Name: "min_rr", Kind: config.KindFloat, Default: defaults.MinRR},
			{Name: "default_rr", Kind: config.KindFloat, Default: defaults.DefaultRR},
			{Name: "max_rr", Kind: config.KindFloat, Default: defaults.MaxRR},
			{Name: "atr_period", Kind: config.KindInt, Default: defaults.ATRPeriod},
			{Name: "cluster_tolerance", Kind: config.KindFloat, Default: defaults.ClusterTolerance},
			{Name: "max_daily_trades", Kind: config.KindInt, Default: 10},
			{Name: "max_concurrent_per_symbol", Kind: config.KindInt, Default: 3},
		},
	}
}

// ApplyParams returns a copy of cfg with every key in params overlaid onto
// its SignalParams/RiskGateConfig fields. Missing keys leave cfg's existing
// value untouched, so callers can pass a partial ParameterSet.
func ApplyParams(cfg StrategyConfig, params domain.ParameterSet) StrategyConfig {
	out := cfg
	if v, ok := asFloat(params["confluence_threshold"]); ok {
		out.SignalParams.ConfluenceThreshold = v
		out.RiskGateConfig.ConfluenceThreshold = v
	}
	if v, ok := asFloat(params["min_rr"]); ok {
		out.SignalParams.MinRR = v
	}
	if v, ok := asFloat(params["default_rr"]); ok {
		out.SignalParams.DefaultRR = v
	}
	if v, ok := asFloat(params["max_rr"]); ok {
		out.SignalParams.MaxRR = v
	}
	if v, ok := asFloat(params["atr_period"]); ok {
		out.SignalParams.ATRPeriod = int(v)
	}
	if v, ok := asFloat(params["cluster_tolerance"]); ok {
		out.SignalParams.ClusterTolerance = v
	}
	if v, ok := asFloat(params["max_daily_trades"]); ok {
		out.RiskGateConfig.MaxDailyTrades = int(v)
	}
	if v, ok := asFloat(params["max_concurrent_per_symbol"]); ok {
		out.RiskGateConfig.MaxConcurrentPerSymbol = int(v)
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
