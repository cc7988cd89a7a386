// Package fillsim owns the simulated position book and balance, grounded on
// the donor's libs/replay.SimBroker (spread/slippage application, tracked
// positions, mark-to-market equity) and libs/strategies/backtest.go's
// checkExits scan, corrected for the stop-wins tie-break spec.md Testable
// Property 9 requires.
package fillsim

import (
	"sync"

	"github.com/shopspring/decimal"

	"replaybench/internal/domain"
)

// Config fixes the simulator's cost model for one replay.
type Config struct {
	SpreadPips   float64
	SlippagePips float64
	PipSize      float64 // price units per pip, e.g. 0.0001 for most FX pairs
	// StopWinsTies resolves the donor's ambiguous same-bar SL/TP overlap:
	// when true (the default, per spec.md Testable Property 9 / Scenario
	// S2) a bar whose range contains both the stop and the target is
	// recorded as a stop exit.
	StopWinsTies bool
	// SlippageModel optionally derives a volatility-scaled slippage figure
	// from recent bar ranges instead of the static SlippagePips constant;
	// nil uses the static constant. See internal/fillsim/slippage.go.
	SlippageModel SlippageModel
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{StopWinsTies: true, PipSize: 0.0001}
}

// ClosedExit is one stop/target hit produced by CheckStops.
type ClosedExit struct {
	Ticket    uint64
	Reason    domain.ExitReason
	ExitPrice float64
}

// Simulator owns the open/closed position book and running balance for one
// replay. Not safe for concurrent use across replays; each replay owns its
// own instance (spec.md §5's "disjoint state" requirement).
type Simulator struct {
	cfg Config
	mu  sync.Mutex

	nextTicket uint64
	open       map[uint64]*domain.Position
	closed     []domain.Trade

	initialBalance decimal.Decimal
	realizedPnL    decimal.Decimal
}

func New(cfg Config, initialBalance decimal.Decimal) *Simulator {
	return &Simulator{
		cfg: cfg, open: make(map[uint64]*domain.Position),
		initialBalance: initialBalance,
	}
}

// Open assigns a ticket, applies spread and slippage in the trade
// direction, and records the position as open.
func (s *Simulator) Open(intent domain.TradeIntent, volume float64, bar domain.Candle) domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTicket++
	spread := s.cfg.SpreadPips * s.cfg.PipSize
	slip := s.slippage(bar) * s.cfg.PipSize

	entry := bar.Open
	if intent.Direction == domain.Bullish {
		entry = entry + spread/2 + slip
	} else {
		entry = entry - spread/2 - slip
	}

	pos := domain.Position{
		Ticket: s.nextTicket, Symbol: intent.Symbol, Strategy: intent.Strategy,
		Direction: intent.Direction,
		Volume:    decimal.NewFromFloat(volume),
		EntryPrice: decimal.NewFromFloat(entry),
		StopLoss:   decimal.NewFromFloat(intent.StopLoss),
		TakeProfit: decimal.NewFromFloat(intent.TakeProfit),
		OpenTimeMs: bar.TimestampMs,
	}
	s.open[pos.Ticket] = &pos
	return pos
}

func (s *Simulator) slippage(bar domain.Candle) float64 {
	if s.cfg.SlippageModel != nil {
		return s.cfg.SlippageModel.SlippagePips(bar)
	}
	return s.cfg.SlippagePips
}

// CheckStops scans every open position for the given symbol against the
// bar's [low, high] range. A bar whose range contains both levels resolves
// per Config.StopWinsTies (stop wins when true, matching spec.md's
// prescribed behavior and correcting the donor's TP-overwrites-SL bug).
func (s *Simulator) CheckStops(symbol string, bar domain.Candle) []ClosedExit {
	s.mu.Lock()
	tickets := make([]uint64, 0, len(s.open))
	for t, pos := range s.open {
		if pos.Symbol == symbol {
			tickets = append(tickets, t)
		}
	}
	s.mu.Unlock()

	var out []ClosedExit
	for _, t := range tickets {
		s.mu.Lock()
		pos, ok := s.open[t]
		s.mu.Unlock()
		if !ok {
			continue
		}
		reason, exitPrice, hit := s.evaluateExit(*pos, bar)
		if !hit {
			continue
		}
		s.Close(t, reason, exitPrice, bar.TimestampMs)
		out = append(out, ClosedExit{Ticket: t, Reason: reason, ExitPrice: exitPrice})
	}
	return out
}

func (s *Simulator) evaluateExit(pos domain.Position, bar domain.Candle) (domain.ExitReason, float64, bool) {
	sl, _ := pos.StopLoss.Float64()
	tp, _ := pos.TakeProfit.Float64()

	var slHit, tpHit bool
	if pos.Direction == domain.Bullish {
		slHit = bar.Low <= sl
		tpHit = bar.High >= tp
	} else {
		slHit = bar.High >= sl
		tpHit = bar.Low <= tp
	}

	switch {
	case slHit && tpHit:
		if s.cfg.StopWinsTies {
			return domain.ExitStopLoss, sl, true
		}
		return domain.ExitTakeProfit, tp, true
	case slHit:
		return domain.ExitStopLoss, sl, true
	case tpHit:
		return domain.ExitTakeProfit, tp, true
	default:
		return "", 0, false
	}
}

// Close applies exit spread (bullish exits at bid, bearish at ask),
// computes realized PnL, updates the running balance, and moves the
// position from open to closed.
func (s *Simulator) Close(ticket uint64, reason domain.ExitReason, exitPrice float64, exitTimeMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[ticket]
	if !ok {
		return
	}
	delete(s.open, ticket)

	spread := s.cfg.SpreadPips * s.cfg.PipSize
	adjusted := exitPrice
	if pos.Direction == domain.Bullish {
		adjusted -= spread / 2
	} else {
		adjusted += spread / 2
	}

	entry, _ := pos.EntryPrice.Float64()
	volume, _ := pos.Volume.Float64()
	sign := 1.0
	if pos.Direction == domain.Bearish {
		sign = -1.0
	}
	pnl := (adjusted - entry) * volume * sign

	pos.Closed = true
	pos.ClosePrice = decimal.NewFromFloat(adjusted)
	pos.ExitReason = reason
	pos.CloseTimeMs = exitTimeMs
	pos.RealizedPnL = decimal.NewFromFloat(pnl)
	s.realizedPnL = s.realizedPnL.Add(pos.RealizedPnL)

	sl, _ := pos.StopLoss.Float64()
	risk := absFloat(entry - sl)
	rr := 0.0
	if risk > 0 {
		rr = absFloat(adjusted-entry) / risk
	}

	s.closed = append(s.closed, domain.Trade{
		Ticket: pos.Ticket, Symbol: pos.Symbol, Direction: pos.Direction, Strategy: pos.Strategy,
		EntryPrice: pos.EntryPrice, ExitPrice: pos.ClosePrice,
		EntryTimeMs: pos.OpenTimeMs, ExitTimeMs: exitTimeMs,
		StopLoss: pos.StopLoss, TakeProfit: pos.TakeProfit, Volume: pos.Volume,
		Profit: pos.RealizedPnL,
		DurationMinutes: float64(exitTimeMs-pos.OpenTimeMs) / 60000,
		Pips: absFloat(adjusted-entry) / s.cfg.PipSize,
		RiskReward: rr,
	})
}

// Balance is the sum of realized PnL plus the initial balance.
func (s *Simulator) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialBalance.Add(s.realizedPnL)
}

// Equity adds mark-to-market of the open positions in the bar's symbol at
// the bar's close to the current balance. Open positions in other symbols
// add nothing to the result.
func (s *Simulator) Equity(bar domain.Candle) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	equity := s.initialBalance.Add(s.realizedPnL)
	for _, pos := range s.open {
		if pos.Symbol != bar.Symbol {
			continue
		}
		entry, _ := pos.EntryPrice.Float64()
		volume, _ := pos.Volume.Float64()
		sign := 1.0
		if pos.Direction == domain.Bearish {
			sign = -1.0
		}
		mtm := (bar.Close - entry) * volume * sign
		equity = equity.Add(decimal.NewFromFloat(mtm))
	}
	return equity
}

// ClosedTrades returns the ledger of completed trades in close order.
func (s *Simulator) ClosedTrades() []domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trade, len(s.closed))
	copy(out, s.closed)
	return out
}

// OpenPositions returns a snapshot of currently open positions.
func (s *Simulator) OpenPositions() []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Position, 0, len(s.open))
	for _, pos := range s.open {
		out = append(out, *pos)
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
