package resultsink

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"replaybench/internal/domain"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresSink persists runs/results and single-replay backtest_* rows to
// the schema documented in spec.md §6. The donor's libs/database/connection.go
// referenced a RunMigrations helper it never implemented; NewPostgresSink
// applies the real migration set from migrations/ on every startup via
// golang-migrate instead.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens dsn via the pgx stdlib driver and migrates the
// schema up to the latest version.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("resultsink: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("resultsink: ping postgres: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresSink{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	srcDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("resultsink: load embedded migrations: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("resultsink: postgres migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx", dbDriver)
	if err != nil {
		return fmt.Errorf("resultsink: build migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("resultsink: apply migrations: %w", err)
	}
	return nil
}

func (p *PostgresSink) Close() error {
	return p.db.Close()
}

// WriteReplay inserts one row into backtest_runs plus one row per closed
// trade and equity sample, all in a single transaction.
func (p *PostgresSink) WriteReplay(ctx context.Context, result domain.ReplayResult) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resultsink: begin tx: %w", err)
	}
	defer tx.Rollback()

	totalReturnPct := 0.0
	if result.InitialBalance.IsPositive() {
		f, _ := result.FinalBalance.Sub(result.InitialBalance).Div(result.InitialBalance).Float64()
		totalReturnPct = f * 100
	}
	strategy := ""
	if len(result.Config.Strategies) > 0 {
		strategy = result.Config.Strategies[0]
	}
	symbol := ""
	if len(result.Config.Symbols) > 0 {
		symbol = result.Config.Symbols[0]
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, symbol, strategy, initial_balance, final_balance, total_return_percent, status, runtime_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, final_balance = EXCLUDED.final_balance`,
		result.RunID, symbol, strategy, result.InitialBalance, result.FinalBalance, totalReturnPct, result.Status, result.RuntimeMs)
	if err != nil {
		return fmt.Errorf("resultsink: insert backtest_runs: %w", err)
	}

	for _, tr := range result.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_trades
			(ticket, run_id, symbol, direction, strategy, entry_price, exit_price, entry_time, exit_time, sl, tp, volume, profit, duration_minutes, pips, risk_reward)
			VALUES ($1,$2,$3,$4,$5,$6,$7,to_timestamp($8/1000.0),to_timestamp($9/1000.0),$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (run_id, ticket) DO NOTHING`,
			tr.Ticket, result.RunID, tr.Symbol, string(tr.Direction), tr.Strategy,
			tr.EntryPrice, tr.ExitPrice, tr.EntryTimeMs, tr.ExitTimeMs,
			tr.StopLoss, tr.TakeProfit, tr.Volume, tr.Profit, tr.DurationMinutes, tr.Pips, tr.RiskReward)
		if err != nil {
			return fmt.Errorf("resultsink: insert backtest_trades: %w", err)
		}
	}

	for _, pt := range result.EquityCurve {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backtest_equity (run_id, ts_ms, balance, equity, drawdown, drawdown_percent)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (run_id, ts_ms) DO NOTHING`,
			result.RunID, pt.TimestampMs, pt.Balance, pt.Equity, pt.Drawdown, pt.DrawdownPct)
		if err != nil {
			return fmt.Errorf("resultsink: insert backtest_equity: %w", err)
		}
	}

	return tx.Commit()
}

// WriteOptimizationRun inserts the run header and one results row per
// scored parameter set.
func (p *PostgresSink) WriteOptimizationRun(ctx context.Context, run domain.OptimizationRun, results []domain.OptimizationResult) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resultsink: begin tx: %w", err)
	}
	defer tx.Rollback()

	inSample, err := json.Marshal(run.InSampleRange)
	if err != nil {
		return fmt.Errorf("resultsink: marshal in_sample_range: %w", err)
	}
	var outSample []byte
	if run.OutSampleRange != nil {
		outSample, err = json.Marshal(run.OutSampleRange)
		if err != nil {
			return fmt.Errorf("resultsink: marshal out_sample_range: %w", err)
		}
	}
	symbol := ""
	if len(run.Symbols) > 0 {
		symbol = run.Symbols[0]
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, method, symbol, in_sample_range, out_sample_range, status, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error`,
		run.ID, string(run.Method), symbol, inSample, nullableJSON(outSample), string(run.Status), run.Error)
	if err != nil {
		return fmt.Errorf("resultsink: insert runs: %w", err)
	}

	for i, r := range results {
		paramSet, err := json.Marshal(r.ParamSet)
		if err != nil {
			return fmt.Errorf("resultsink: marshal param_set: %w", err)
		}
		metrics, err := json.Marshal(r.Metrics)
		if err != nil {
			return fmt.Errorf("resultsink: marshal metrics: %w", err)
		}
		equity, err := json.Marshal(r.EquityCurve)
		if err != nil {
			return fmt.Errorf("resultsink: marshal equity_curve: %w", err)
		}
		trades, err := json.Marshal(r.Trades)
		if err != nil {
			return fmt.Errorf("resultsink: marshal trades: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO results (id, run_id, param_set, metrics, equity_curve, trades, ranked_score)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			fmt.Sprintf("%s-%d", run.ID, i), run.ID, paramSet, metrics, equity, trades, r.RankedScore)
		if err != nil {
			return fmt.Errorf("resultsink: insert results: %w", err)
		}
	}

	return tx.Commit()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
