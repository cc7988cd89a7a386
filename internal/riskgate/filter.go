// Package riskgate implements the execution filter and risk gate: a
// stateless per-evaluation rule check over small shared counters, following
// the donor's libs/risk (Policy/Enforcer/Violation) and libs/guardrails
// (HealthMonitor/OverrideController, blocked/reduced modes) idiom.
package riskgate

import (
	"time"

	"replaybench/internal/domain"
)

// GuardrailMode mirrors the donor's OverrideController states, generalized
// to this gate's pass/reduce/block trichotomy.
type GuardrailMode string

const (
	ModeNormal  GuardrailMode = "normal"
	ModeReduced GuardrailMode = "reduced"
	ModeBlocked GuardrailMode = "blocked"
)

// Config is the fixed rule configuration for one symbol/strategy pair,
// loaded once per replay alongside EngineConfig.
type Config struct {
	SessionStartHour int // inclusive, in Timezone
	SessionEndHour   int // exclusive, in Timezone
	Timezone         *time.Location

	MaxSpreadPips float64

	MinMinutesSinceLastTrade float64
	MaxDailyTrades           int

	MaxConcurrentPerSymbol    int
	MaxConcurrentPerDirection int // 0 disables the sub-cap
	MaxConcurrentGlobal       int

	MaxDailyRiskDollarsSymbol float64
	MaxDailyRiskDollarsGlobal float64

	ConfluenceThreshold float64
}

// EvalContext is the explicit, immutable snapshot of counters the gate
// reads for one bar's evaluation — per the spec's design note, shared
// tracking is threaded through calls rather than read from ambient state.
type EvalContext struct {
	Now                   time.Time
	SpreadPips            float64
	MinutesSinceLastTrade float64
	HasPriorTrade         bool
	DailyTradeCount       int
	OpenPerSymbol         int
	OpenPerSymbolDirection int
	OpenGlobal            int
	RiskDollarsSymbol     float64
	RiskDollarsGlobal     float64
	NewIntentRiskDollars  float64
	NewsWindowBlocked     bool
	GuardrailMode         GuardrailMode
}

// Decision is the gate's successful output: the (possibly guardrail-scaled)
// risk percent to size the position with.
type Decision struct {
	RiskPercent float64
}

// Evaluate returns SKIP with the single reason "guardrail_blocked" if the
// guardrail mode is blocked; otherwise it runs every enabled rule and
// returns SKIP with the full list of failing rule names if any fail, or Ok
// with the (possibly halved) risk percent.
func Evaluate(intent domain.TradeIntent, cfg Config, ec EvalContext, riskPercent float64) domain.Outcome[Decision] {
	if ec.GuardrailMode == ModeBlocked {
		return domain.Skip[Decision]("guardrail_blocked")
	}

	var failing []string
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}
	if !inSession(ec.Now.In(tz), cfg.SessionStartHour, cfg.SessionEndHour) {
		failing = append(failing, "outside_session_window")
	}
	if cfg.MaxSpreadPips > 0 && ec.SpreadPips > cfg.MaxSpreadPips {
		failing = append(failing, "spread_too_wide")
	}
	if ec.HasPriorTrade && ec.MinutesSinceLastTrade < cfg.MinMinutesSinceLastTrade {
		failing = append(failing, "min_minutes_since_last_trade")
	}
	if cfg.MaxDailyTrades > 0 && ec.DailyTradeCount >= cfg.MaxDailyTrades {
		failing = append(failing, "daily_trade_count_exceeded")
	}
	if cfg.MaxConcurrentPerSymbol > 0 && ec.OpenPerSymbol >= cfg.MaxConcurrentPerSymbol {
		failing = append(failing, "symbol_concurrent_cap")
	}
	if cfg.MaxConcurrentPerDirection > 0 && ec.OpenPerSymbolDirection >= cfg.MaxConcurrentPerDirection {
		failing = append(failing, "direction_concurrent_cap")
	}
	if cfg.MaxConcurrentGlobal > 0 && ec.OpenGlobal >= cfg.MaxConcurrentGlobal {
		failing = append(failing, "global_concurrent_cap")
	}
	if cfg.MaxDailyRiskDollarsSymbol > 0 && ec.RiskDollarsSymbol+ec.NewIntentRiskDollars > cfg.MaxDailyRiskDollarsSymbol {
		failing = append(failing, "symbol_daily_risk_cap")
	}
	if cfg.MaxDailyRiskDollarsGlobal > 0 && ec.RiskDollarsGlobal+ec.NewIntentRiskDollars > cfg.MaxDailyRiskDollarsGlobal {
		failing = append(failing, "global_daily_risk_cap")
	}
	if ec.NewsWindowBlocked {
		failing = append(failing, "news_window_blocked")
	}
	if cfg.ConfluenceThreshold > 0 && intent.ConfluenceScore < cfg.ConfluenceThreshold {
		failing = append(failing, "confluence_below_threshold")
	}

	if len(failing) > 0 {
		return domain.Skip[Decision](failing...)
	}

	adjusted := riskPercent
	if ec.GuardrailMode == ModeReduced {
		adjusted *= 0.5
	}
	return domain.Ok(Decision{RiskPercent: adjusted})
}

func inSession(t time.Time, startHour, endHour int) bool {
	if startHour == 0 && endHour == 0 {
		return true // no session restriction configured
	}
	h := t.Hour()
	if startHour <= endHour {
		return h >= startHour && h < endHour
	}
	// Session wraps midnight.
	return h >= startHour || h < endHour
}
