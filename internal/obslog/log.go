package obslog

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// Event writes a single-line JSON log record enriched with whatever RunInfo
// is attached to ctx. Every component logs through this function instead of
// calling fmt.Println or the standard logger directly.
func Event(ctx context.Context, level, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.RunID != "" {
		payload["run_id"] = info.RunID
	}
	if info.ReplayID != "" {
		payload["replay_id"] = info.ReplayID
	}
	if info.Symbol != "" {
		payload["symbol"] = info.Symbol
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// BarProcessed logs a per-bar replay heartbeat at debug volume; callers
// typically gate this behind a verbose flag since it fires once per bar.
func BarProcessed(ctx context.Context, symbol string, timestampMs int64, barIndex int) {
	Event(ctx, "debug", "bar_processed", map[string]any{
		"symbol":       symbol,
		"timestamp_ms": timestampMs,
		"bar_index":    barIndex,
	})
}

// TradeOpened logs a fill-simulator position open.
func TradeOpened(ctx context.Context, ticket uint64, symbol string, entry float64) {
	Event(ctx, "info", "trade_opened", map[string]any{
		"ticket": ticket,
		"symbol": symbol,
		"entry":  entry,
	})
}

// TradeClosed logs a fill-simulator position close.
func TradeClosed(ctx context.Context, ticket uint64, reason string, exitPrice float64) {
	Event(ctx, "info", "trade_closed", map[string]any{
		"ticket":     ticket,
		"reason":     reason,
		"exit_price": exitPrice,
	})
}

func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		switch key {
		case "input", "payload":
			out[key] = RedactValue(value)
			continue
		}
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}
