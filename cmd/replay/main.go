// Command replay runs a single backtest over one or more symbols and writes
// its results to --output-dir (and, with --save-db, to Postgres).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"replaybench/internal/config"
	"replaybench/internal/dataloader"
	"replaybench/internal/domain"
	"replaybench/internal/engine"
	"replaybench/internal/fillsim"
	"replaybench/internal/obslog"
	"replaybench/internal/resultsink"
)

func main() {
	os.Exit(run())
}

func run() int {
	symbolFlag := flag.String("symbol", "", "comma-separated symbol list")
	strategyFlag := flag.String("strategy", engine.PresetLow, "strategy preset: low, high, or a comma-separated combination")
	fromFlag := flag.String("from", "", "start date, YYYY-MM-DD")
	toFlag := flag.String("to", "", "end date, YYYY-MM-DD")
	dataSourceFlag := flag.String("data-source", "file", "candle source: file, db, remote, synthetic")
	dataPathFlag := flag.String("data-path", "", "path to the candle file (data-source=file)")
	initialBalanceFlag := flag.Float64("initial-balance", 10000, "starting account balance")
	outputDirFlag := flag.String("output-dir", "./replay-output", "directory to write summary.json/trades.csv/equity.json")
	saveDBFlag := flag.Bool("save-db", false, "also persist the result to Postgres via DATABASE_URL")
	flag.Parse()

	if *symbolFlag == "" {
		log.Printf("replay: --symbol is required")
		return 1
	}
	symbols := splitCSV(*symbolFlag)

	from, err := parseDate(*fromFlag)
	if err != nil {
		log.Printf("replay: --from: %v", err)
		return 1
	}
	to, err := parseDate(*toFlag)
	if err != nil {
		log.Printf("replay: --to: %v", err)
		return 1
	}

	strategies, err := engine.ResolveStrategies(*strategyFlag)
	if err != nil {
		log.Printf("replay: %v", err)
		return 1
	}

	cfg, err := config.New(config.EngineConfig{
		InitialBalance: *initialBalanceFlag,
		RiskPercent:    1,
		ContractSize:   1,
		PipValue:       1,
	})
	if err != nil {
		log.Printf("replay: %v", err)
		return 1
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("replay: %v", err)
		return 1
	}

	source, err := buildSource(*dataSourceFlag, *dataPathFlag, cfg)
	if err != nil {
		log.Printf("replay: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("replay: cancellation requested, finishing current bar")
		cancel()
	}()

	streams := make(map[string][]domain.Candle, len(symbols))
	for _, symbol := range symbols {
		candles, err := source.Load(ctx, symbol, from, to, domain.M1)
		if err != nil {
			log.Printf("replay: load %s: %v", symbol, err)
			return 1
		}
		streams[symbol] = candles
	}
	bars := engine.MergeCandleStreams(streams)

	eng := engine.New(engine.Config{
		Symbols:           symbols,
		Strategies:        strategies,
		InitialBalance:    decimal.NewFromFloat(cfg.InitialBalance),
		RiskPercent:       cfg.RiskPercent,
		ContractSize:      cfg.ContractSize,
		PipValue:          cfg.PipValue,
		SnapshotEveryBars: cfg.SnapshotEveryBars,
		Timezone:          tz,
		FillConfig:        fillsim.DefaultConfig(),
	})

	runCtx := obslog.WithRunInfo(ctx, obslog.RunInfo{RunID: obslog.NewRunID()})
	result, err := eng.Run(runCtx, bars)
	if err != nil {
		log.Printf("replay: %v", err)
		return 1
	}

	sink := &resultsink.FileSink{Dir: *outputDirFlag}
	if err := sink.WriteReplay(ctx, result); err != nil {
		log.Printf("replay: write output: %v", err)
	}

	if *saveDBFlag {
		if dsn := cfg.DatabaseURL; dsn != "" {
			pg, err := resultsink.NewPostgresSink(ctx, dsn)
			if err != nil {
				log.Printf("replay: postgres sink: %v", err)
			} else {
				defer pg.Close()
				if err := pg.WriteReplay(ctx, result); err != nil {
					log.Printf("replay: write postgres: %v", err)
				}
			}
		} else {
			log.Printf("replay: --save-db set but DATABASE_URL is empty")
		}
	}

	log.Printf("replay: %s complete, %d trades, final balance %s", result.RunID, len(result.Trades), result.FinalBalance)

	if result.Status == "PARTIAL" {
		return 130
	}
	return 0
}

func buildSource(kind, path string, cfg *config.EngineConfig) (dataloader.Source, error) {
	switch kind {
	case "file":
		if path == "" {
			return nil, fmt.Errorf("--data-path is required for --data-source=file")
		}
		return dataloader.FileSource{Path: path, Timeframe: domain.M1}, nil
	case "db":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("--data-source=db requires DATABASE_URL")
		}
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return dataloader.DatabaseSource{DB: db}, nil
	case "remote":
		if cfg.HistoryServiceURL == "" {
			return nil, fmt.Errorf("--data-source=remote requires HISTORY_SERVICE_URL")
		}
		return dataloader.NewRemoteSource(cfg.HistoryServiceURL), nil
	case "synthetic":
		return dataloader.SyntheticSource{Timeframe: domain.M1}, nil
	default:
		return nil, fmt.Errorf("unknown --data-source %q", kind)
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	return time.Parse("2006-01-02", s)
}
