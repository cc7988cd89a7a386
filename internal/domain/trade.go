package domain

import "github.com/shopspring/decimal"

// TradeIntent is the output of the signal synthesizer: a candidate entry
// with its risk levels and the confluence reasons that support it. It is
// discarded if the execution filter or risk gate rejects it.
type TradeIntent struct {
	Symbol          string
	Strategy        string
	Direction       Direction
	Entry           float64
	StopLoss        float64
	TakeProfit      float64
	HTFTrend        Bias
	ConfluenceScore float64
	Reasons         []string
	TimestampMs     int64
}

// ExitReason distinguishes a stop-loss exit from a take-profit exit.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "SL"
	ExitTakeProfit ExitReason = "TP"
	ExitForced     ExitReason = "FORCED"
)

// Position is a simulated open or closed trade. Tickets are monotonically
// increasing per replay and are the only cross-component reference to a
// position; nothing holds a pointer to it.
type Position struct {
	Ticket       uint64
	Symbol       string
	Strategy     string
	Direction    Direction
	Volume       decimal.Decimal
	EntryPrice   decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	OpenTimeMs   int64
	CloseTimeMs  int64
	ClosePrice   decimal.Decimal
	ExitReason   ExitReason
	RealizedPnL  decimal.Decimal
	Closed       bool
}

// Trade is the flattened, closed-position record written to the ledger and
// the CSV output artifact.
type Trade struct {
	Ticket          uint64
	Symbol          string
	Direction       Direction
	Strategy        string
	EntryPrice      decimal.Decimal
	ExitPrice       decimal.Decimal
	EntryTimeMs     int64
	ExitTimeMs      int64
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	Volume          decimal.Decimal
	Profit          decimal.Decimal
	DurationMinutes float64
	Pips            float64
	RiskReward      float64
}

// EquityPoint is a periodic balance/equity/drawdown sample.
type EquityPoint struct {
	TimestampMs   int64
	Balance       decimal.Decimal
	Equity        decimal.Decimal
	Drawdown      decimal.Decimal
	DrawdownPct   float64
}

// ReplayResult is the immutable artifact emitted when a replay terminates.
type ReplayResult struct {
	RunID          string
	Config         ReplayConfig
	Trades         []Trade
	EquityCurve    []EquityPoint
	Stats          Stats
	InitialBalance decimal.Decimal
	FinalBalance   decimal.Decimal
	RuntimeMs      int64
	Status         string // "COMPLETE" or "PARTIAL"
}

// ReplayConfig is the single immutable engine configuration consumed by one
// replay (spec's design note: no late environment reads).
type ReplayConfig struct {
	Symbols        []string
	Strategies     []string
	InitialBalance decimal.Decimal
	RiskPercent    float64
	ContractSize   float64
	PipValue       float64
	SnapshotEvery  int
	StopWinsTies   bool
	Timezone       string
}
