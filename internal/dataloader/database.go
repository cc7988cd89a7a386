package dataloader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"replaybench/internal/domain"
)

// DatabaseSource loads candles from a table keyed by (symbol, timeframe,
// ts), following the donor's libs/database.Connect pooling setup but
// consuming an already-open *sql.DB rather than owning connection lifecycle
// itself — the replay/optimizer CLIs open one pool and share it across
// every symbol's DatabaseSource.
type DatabaseSource struct {
	DB    *sql.DB
	Table string // defaults to "candles"
}

func (d DatabaseSource) table() string {
	if d.Table != "" {
		return d.Table
	}
	return "candles"
}

func (d DatabaseSource) Load(ctx context.Context, symbol string, from, to time.Time, timeframe domain.Timeframe) ([]domain.Candle, error) {
	query := fmt.Sprintf(`
		SELECT ts_ms, open, high, low, close, volume
		FROM %s
		WHERE symbol = $1 AND timeframe = $2 AND ts_ms >= $3 AND ts_ms <= $4
		ORDER BY ts_ms ASC`, d.table())

	toMs := to.UnixMilli()
	if to.IsZero() {
		toMs = time.Now().UnixMilli()
	}

	rows, err := d.DB.QueryContext(ctx, query, symbol, string(timeframe), from.UnixMilli(), toMs)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", domain.ErrDataUnavailable, d.table(), err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.TimestampMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", domain.ErrDataUnavailable, err)
		}
		c.Symbol = symbol
		c.Timeframe = timeframe
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", domain.ErrDataUnavailable, err)
	}

	out = normalize(ctx, symbol, out)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rows for %s/%s in [%s,%s]", domain.ErrDataUnavailable, symbol, timeframe, from, to)
	}
	return out, nil
}
