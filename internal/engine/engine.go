// Package engine implements the replay hot loop: a strictly sequential,
// deterministic per-bar pipeline that walks a merged multi-symbol candle
// stream through the candle store, structural analyzers, signal
// synthesizer, execution filter / risk gate, and fill simulator. Grounded on
// the donor's libs/strategies/backtest.go Backtester.Run loop shape
// (fetch-candles -> fetch-indicators -> strategy.Analyze -> size -> record),
// generalized to the three-timeframe confluence pipeline and the donor's
// since-deleted internal/modules/backtest.Engine replay wrapper.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"replaybench/internal/candlestore"
	"replaybench/internal/domain"
	"replaybench/internal/fillsim"
	"replaybench/internal/metrics"
	"replaybench/internal/obslog"
	"replaybench/internal/riskgate"
	"replaybench/internal/signal"
)

// Config is the single immutable configuration one replay consumes; nothing
// reads the environment or flags after Run starts (spec.md §9 design note).
type Config struct {
	Symbols        []string
	Strategies     []StrategyConfig
	InitialBalance decimal.Decimal
	RiskPercent    float64
	ContractSize   float64
	PipValue       float64
	SnapshotEveryBars int
	StoreCapacity  int
	Timezone       *time.Location
	FillConfig     fillsim.Config
	NewsGate       *riskgate.NewsWindowGate // nil disables the news-avoid check
	// GuardrailMode is read once per bar; callers wire in a health monitor
	// (e.g. one tracking consecutive losses or drawdown breaches) by
	// swapping this field between replay invocations rather than the
	// engine polling ambient state mid-run.
	GuardrailMode riskgate.GuardrailMode
}

type dayKey struct {
	symbol   string
	strategy string
	date     string
}

type pairKey struct {
	symbol   string
	strategy string
}

// Engine owns one replay's disjoint state: its candle store, fill simulator,
// and per-(symbol,strategy) trade bookkeeping. Not reused across replays.
type Engine struct {
	cfg   Config
	store *candlestore.Store
	sim   *fillsim.Simulator

	dailyTradeCount map[dayKey]int
	lastTradeAtMs   map[pairKey]int64
	riskDollarsDay  map[dayKey]float64
	riskDollarsAll  map[string]float64 // keyed by date only

	equity []domain.EquityPoint
}

// New builds an Engine ready to run one replay.
func New(cfg Config) *Engine {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.SnapshotEveryBars <= 0 {
		cfg.SnapshotEveryBars = 50
	}
	return &Engine{
		cfg:             cfg,
		store:           candlestore.New(cfg.StoreCapacity),
		sim:             fillsim.New(cfg.FillConfig, cfg.InitialBalance),
		dailyTradeCount: make(map[dayKey]int),
		lastTradeAtMs:   make(map[pairKey]int64),
		riskDollarsDay:  make(map[dayKey]float64),
		riskDollarsAll:  make(map[string]float64),
	}
}

func (e *Engine) dateOf(ts int64) string {
	return time.UnixMilli(ts).In(e.cfg.Timezone).Format("2006-01-02")
}

// Run drives the hot loop over a pre-merged, strictly-time-ordered stream.
// It returns early with a "PARTIAL" status on cooperative cancellation,
// flushing whatever trades and equity points have accumulated so far.
func (e *Engine) Run(ctx context.Context, bars []SymbolCandle) (domain.ReplayResult, error) {
	if len(e.cfg.Strategies) == 0 {
		return domain.ReplayResult{}, ErrNoStrategies
	}

	status := "COMPLETE"
	started := time.Now()

	for i, sb := range bars {
		select {
		case <-ctx.Done():
			status = "PARTIAL"
		default:
		}
		if status == "PARTIAL" {
			break
		}

		e.processBar(ctx, sb)

		if (i+1)%e.cfg.SnapshotEveryBars == 0 {
			e.snapshotEquity(sb.Candle)
		}
	}

	if len(bars) > 0 {
		e.snapshotEquity(bars[len(bars)-1].Candle)
	}

	trades := e.sim.ClosedTrades()
	result := domain.ReplayResult{
		RunID:          uuid.NewString(),
		Config:         e.replayConfig(),
		Trades:         trades,
		EquityCurve:    e.equity,
		Stats:          metrics.Compute(trades, e.equity),
		InitialBalance: e.cfg.InitialBalance,
		FinalBalance:   e.sim.Balance(),
		RuntimeMs:      time.Since(started).Milliseconds(),
		Status:         status,
	}
	return result, nil
}

func (e *Engine) replayConfig() domain.ReplayConfig {
	strategies := make([]string, len(e.cfg.Strategies))
	for i, s := range e.cfg.Strategies {
		strategies[i] = s.Name
	}
	return domain.ReplayConfig{
		Symbols:        e.cfg.Symbols,
		Strategies:     strategies,
		InitialBalance: e.cfg.InitialBalance,
		RiskPercent:    e.cfg.RiskPercent,
		ContractSize:   e.cfg.ContractSize,
		PipValue:       e.cfg.PipValue,
		SnapshotEvery:  e.cfg.SnapshotEveryBars,
		StopWinsTies:   e.cfg.FillConfig.StopWinsTies,
		Timezone:       e.cfg.Timezone.String(),
	}
}

func (e *Engine) processBar(ctx context.Context, sb SymbolCandle) {
	if err := e.store.Append(sb.Candle); err != nil {
		obslog.Event(ctx, "warn", "candle_append_failed", map[string]any{"symbol": sb.Symbol, "error": err})
		return
	}

	for _, exit := range e.sim.CheckStops(sb.Symbol, sb.Candle) {
		obslog.TradeClosed(ctx, exit.Ticket, string(exit.Reason), exit.ExitPrice)
	}

	newsBlocked := e.cfg.NewsGate != nil && e.cfg.NewsGate.Blocked(ctx, sb.Symbol, time.UnixMilli(sb.Candle.TimestampMs))
	if newsBlocked {
		return
	}

	for _, strat := range e.cfg.Strategies {
		e.evaluateStrategy(ctx, strat, sb)
	}
}

func (e *Engine) evaluateStrategy(ctx context.Context, strat StrategyConfig, sb SymbolCandle) {
	htfCandles := e.store.Recent(sb.Symbol, strat.HTFTimeframe, strat.HTFBars)
	itfCandles := e.store.Recent(sb.Symbol, strat.ITFTimeframe, strat.ITFBars)
	ltfCandles := e.store.Recent(sb.Symbol, strat.LTFTimeframe, strat.LTFBars)

	htfResult := strat.HTFAnalyzer.Run(htfCandles)
	itfResult := strat.ITFAnalyzer.Run(itfCandles)
	ltfResult := strat.LTFAnalyzer.Run(ltfCandles)

	outcome := signal.Synthesize(signal.Input{
		Symbol: sb.Symbol, Strategy: strat.Name, Candles: ltfCandles,
		HTFBias: biasOf(htfResult), ITFBias: biasOf(itfResult),
		ITFRecentCHoCH: recentCHoCH(itfResult), LTF: ltfResult,
		Params: strat.SignalParams,
	})
	intent, ok := outcome.Value()
	if !ok {
		return
	}

	ec := e.evalContext(sb, strat, intent)
	decision := riskgate.Evaluate(intent, strat.RiskGateConfig, ec, e.cfg.RiskPercent)
	gate, ok := decision.Value()
	if !ok {
		obslog.Event(ctx, "debug", "intent_rejected", map[string]any{
			"symbol": sb.Symbol, "strategy": strat.Name, "reasons": decision.Reasons(),
		})
		return
	}

	balance, _ := e.sim.Balance().Float64()
	volume := positionSize(balance, gate.RiskPercent, intent.Entry, intent.StopLoss, e.cfg.ContractSize, e.cfg.PipValue)
	if volume <= 0 {
		return
	}

	pos := e.sim.Open(intent, volume, sb.Candle)
	obslog.TradeOpened(ctx, pos.Ticket, sb.Symbol, intent.Entry)

	key := pairKey{symbol: sb.Symbol, strategy: strat.Name}
	e.lastTradeAtMs[key] = sb.Candle.TimestampMs
	day := dayKey{symbol: sb.Symbol, strategy: strat.Name, date: e.dateOf(sb.Candle.TimestampMs)}
	e.dailyTradeCount[day]++

	riskDollars := balance * gate.RiskPercent / 100
	e.riskDollarsDay[day] += riskDollars
	e.riskDollarsAll[e.dateOf(sb.Candle.TimestampMs)] += riskDollars
}

func (e *Engine) evalContext(sb SymbolCandle, strat StrategyConfig, intent domain.TradeIntent) riskgate.EvalContext {
	key := pairKey{symbol: sb.Symbol, strategy: strat.Name}
	lastMs, hasPrior := e.lastTradeAtMs[key]
	minutesSince := 0.0
	if hasPrior {
		minutesSince = float64(sb.Candle.TimestampMs-lastMs) / 60000
	}
	date := e.dateOf(sb.Candle.TimestampMs)
	day := dayKey{symbol: sb.Symbol, strategy: strat.Name, date: date}

	var openSymbol, openDirection, openGlobal int
	for _, pos := range e.sim.OpenPositions() {
		openGlobal++
		if pos.Symbol != sb.Symbol {
			continue
		}
		openSymbol++
		if pos.Direction == intent.Direction {
			openDirection++
		}
	}

	balance, _ := e.sim.Balance().Float64()
	newIntentRisk := balance * e.cfg.RiskPercent / 100

	return riskgate.EvalContext{
		Now:                    time.UnixMilli(sb.Candle.TimestampMs),
		MinutesSinceLastTrade:  minutesSince,
		HasPriorTrade:          hasPrior,
		DailyTradeCount:        e.dailyTradeCount[day],
		OpenPerSymbol:          openSymbol,
		OpenPerSymbolDirection: openDirection,
		OpenGlobal:             openGlobal,
		RiskDollarsSymbol:      e.riskDollarsDay[day],
		RiskDollarsGlobal:      e.riskDollarsAll[date],
		NewIntentRiskDollars:   newIntentRisk,
		GuardrailMode:          e.cfg.GuardrailMode,
	}
}

func (e *Engine) snapshotEquity(bar domain.Candle) {
	equity := e.sim.Equity(bar)
	balance := e.sim.Balance()
	drawdown := e.cfg.InitialBalance.Sub(equity)
	if drawdown.IsNegative() {
		drawdown = decimal.Zero
	}
	ddPct := 0.0
	if e.cfg.InitialBalance.IsPositive() {
		f, _ := drawdown.Div(e.cfg.InitialBalance).Float64()
		ddPct = f * 100
	}
	e.equity = append(e.equity, domain.EquityPoint{
		TimestampMs: bar.TimestampMs, Balance: balance, Equity: equity,
		Drawdown: drawdown, DrawdownPct: ddPct,
	})
}
