// Command optimize drives a parameter search (grid, random, Bayes-like, or
// walk-forward) over repeated replay runs and writes a ranked CSV (and,
// with --save-db, a Postgres run/results record).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"replaybench/internal/config"
	"replaybench/internal/dataloader"
	"replaybench/internal/domain"
	"replaybench/internal/engine"
	"replaybench/internal/fillsim"
	"replaybench/internal/obslog"
	"replaybench/internal/optimizer"
	"replaybench/internal/resultsink"
)

func main() {
	os.Exit(run())
}

func run() int {
	methodFlag := flag.String("method", "random", "search method: grid, random, bayes, walkforward")
	symbolFlag := flag.String("symbol", "", "single symbol to optimize")
	strategyFlag := flag.String("strategy", engine.PresetLow, "strategy preset: low, high, or a comma-separated combination")
	fromFlag := flag.String("from", "", "in-sample start date, YYYY-MM-DD")
	toFlag := flag.String("to", "", "in-sample end date, YYYY-MM-DD")
	oosFromFlag := flag.String("out-of-sample-from", "", "out-of-sample start date, YYYY-MM-DD")
	oosToFlag := flag.String("out-of-sample-to", "", "out-of-sample end date, YYYY-MM-DD")
	paramGridFlag := flag.String("param-grid", "", "YAML file enumerating grid values per parameter")
	paramRangesFlag := flag.String("param-ranges", "", "YAML file declaring {min,max,kind} per parameter")
	trialsFlag := flag.Int("trials", 20, "trial count for random/bayes")
	wfWindowsFlag := flag.Int("walk-forward-windows", 4, "window count for walkforward")
	wfStepFlag := flag.Int("walk-forward-step", 30, "window step size in days for walkforward")
	parallelFlag := flag.Int("parallel-runs", 4, "dispatch width for concurrent replays")
	exportCSVFlag := flag.String("export-csv", "", "path to write the ranked results CSV")
	saveDBFlag := flag.Bool("save-db", false, "also persist the run and results to Postgres via DATABASE_URL")
	flag.Parse()

	if *symbolFlag == "" {
		log.Printf("optimize: --symbol is required")
		return 1
	}

	from, err := time.Parse("2006-01-02", *fromFlag)
	if err != nil {
		log.Printf("optimize: --from: %v", err)
		return 1
	}
	to, err := time.Parse("2006-01-02", *toFlag)
	if err != nil {
		log.Printf("optimize: --to: %v", err)
		return 1
	}

	method := domain.OptMethod(*methodFlag)
	grid, err := loadParamGrid(*paramGridFlag)
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}
	ranges, err := loadParamRanges(*paramRangesFlag)
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}

	strategies, err := engine.ResolveStrategies(*strategyFlag)
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}
	baseStrategy := strategies[0]

	cfg, err := config.New(config.EngineConfig{
		InitialBalance: 10000,
		RiskPercent:    1,
		ContractSize:   1,
		PipValue:       1,
		ParallelRuns:   *parallelFlag,
	})
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}

	source := defaultSource(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("optimize: cancellation requested, finishing in-flight replays")
		cancel()
	}()

	var cache *optimizer.TrialCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c, err := optimizer.NewTrialCache(addr, time.Hour)
		if err != nil {
			log.Printf("optimize: trial cache unavailable, continuing without it: %v", err)
		} else {
			cache = c
			defer c.Close()
		}
	}

	symbol := *symbolFlag
	runner := buildRunner(ctx, symbol, baseStrategy, source, cfg, tz)

	req := optimizer.Request{
		Method:              method,
		Symbol:              symbol,
		Strategy:            baseStrategy.Name,
		FromMs:              from.UnixMilli(),
		ToMs:                to.UnixMilli(),
		Grid:                grid,
		Ranges:              ranges,
		Trials:              *trialsFlag,
		WalkForwardWindows:  *wfWindowsFlag,
		WalkForwardStepDays: *wfStepFlag,
		Parallel:            cfg.ParallelRuns,
	}
	if *oosFromFlag != "" && *oosToFlag != "" {
		oosFrom, err := time.Parse("2006-01-02", *oosFromFlag)
		if err != nil {
			log.Printf("optimize: --out-of-sample-from: %v", err)
			return 1
		}
		oosTo, err := time.Parse("2006-01-02", *oosToFlag)
		if err != nil {
			log.Printf("optimize: --out-of-sample-to: %v", err)
			return 1
		}
		req.OutOfSampleFromMs = oosFrom.UnixMilli()
		req.OutOfSampleToMs = oosTo.UnixMilli()
	}

	runID := obslog.NewRunID()
	runCtx := obslog.WithRunInfo(ctx, obslog.RunInfo{RunID: runID})

	outcome := optimizer.Optimize(runCtx, req, runner, cache)
	results := toOptimizationResults(runID, outcome)

	if *exportCSVFlag != "" {
		sink := &resultsink.FileSink{}
		if err := sink.WriteOptimizationCSV(*exportCSVFlag, results); err != nil {
			log.Printf("optimize: write csv: %v", err)
		}
	}

	if *saveDBFlag {
		if dsn := cfg.DatabaseURL; dsn != "" {
			pg, err := resultsink.NewPostgresSink(ctx, dsn)
			if err != nil {
				log.Printf("optimize: postgres sink: %v", err)
			} else {
				defer pg.Close()
				optRun := domain.OptimizationRun{
					ID:            runID,
					Method:        method,
					Symbols:       []string{symbol},
					InSampleRange: domain.DateRange{FromMs: req.FromMs, ToMs: req.ToMs},
					Status:        domain.RunCompleted,
				}
				if err := pg.WriteOptimizationRun(ctx, optRun, results); err != nil {
					log.Printf("optimize: write postgres: %v", err)
				}
			}
		} else {
			log.Printf("optimize: --save-db set but DATABASE_URL is empty")
		}
	}

	log.Printf("optimize: run %s complete, %d results", runID, len(results))
	return 0
}

// buildRunner adapts one symbol/strategy/data-source triple into the
// optimizer's ReplayRunner signature: one parameter set in, one metric
// vector out, independent of every other trial.
func buildRunner(ctx context.Context, symbol string, base engine.StrategyConfig, source dataloader.Source, cfg *config.EngineConfig, tz *time.Location) optimizer.ReplayRunner {
	return func(_ context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		candles, err := source.Load(ctx, symbol, time.UnixMilli(fromMs), time.UnixMilli(toMs), domain.M1)
		if err != nil {
			return domain.Stats{}, err
		}
		strat := engine.ApplyParams(base, params)
		eng := engine.New(engine.Config{
			Symbols:           []string{symbol},
			Strategies:        []engine.StrategyConfig{strat},
			InitialBalance:    decimal.NewFromFloat(cfg.InitialBalance),
			RiskPercent:       cfg.RiskPercent,
			ContractSize:      cfg.ContractSize,
			PipValue:          cfg.PipValue,
			SnapshotEveryBars: cfg.SnapshotEveryBars,
			Timezone:          tz,
			FillConfig:        fillsim.DefaultConfig(),
		})
		bars := engine.MergeCandleStreams(map[string][]domain.Candle{symbol: candles})
		result, err := eng.Run(ctx, bars)
		if err != nil {
			return domain.Stats{}, err
		}
		return result.Stats, nil
	}
}

func toOptimizationResults(runID string, outcome optimizer.Outcome) []domain.OptimizationResult {
	if outcome.WalkForward != nil {
		wf := outcome.WalkForward
		var stabilitySum float64
		for _, w := range wf.Windows {
			stabilitySum += w.StabilityScore
		}
		avgStability := 0.0
		if len(wf.Windows) > 0 {
			avgStability = stabilitySum / float64(len(wf.Windows))
		}
		return []domain.OptimizationResult{{
			RunID:       runID,
			ParamSet:    wf.VotedParams,
			Metrics:     wf.AvgOOSMetrics,
			RankedScore: avgStability,
		}}
	}
	out := make([]domain.OptimizationResult, 0, len(outcome.Trials))
	for _, trial := range outcome.Trials {
		out = append(out, domain.OptimizationResult{
			RunID:       runID,
			ParamSet:    trial.Params,
			Metrics:     trial.Metrics,
			RankedScore: trial.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RankedScore > out[j].RankedScore })
	return out
}

// defaultSource picks a candle source from the environment rather than a
// flag: the optimizer's flag set has no --data-source of its own, since a
// sweep always replays the same symbol against whichever
// history backend the deployment has configured. DATABASE_URL wins when
// set, then HISTORY_SERVICE_URL, else a seeded synthetic generator so a
// sweep is still runnable without either backend configured.
func defaultSource(cfg *config.EngineConfig) dataloader.Source {
	if cfg.DatabaseURL != "" {
		if db, err := sql.Open("pgx", cfg.DatabaseURL); err == nil {
			return dataloader.DatabaseSource{DB: db}
		}
	}
	if cfg.HistoryServiceURL != "" {
		return dataloader.NewRemoteSource(cfg.HistoryServiceURL)
	}
	return dataloader.SyntheticSource{Timeframe: domain.M1}
}

func loadParamGrid(path string) (optimizer.ParamGrid, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read param-grid: %w", err)
	}
	var grid optimizer.ParamGrid
	if err := yaml.Unmarshal(data, &grid); err != nil {
		return nil, fmt.Errorf("parse param-grid: %w", err)
	}
	return grid, nil
}

type paramRangeFile struct {
	Kind string  `yaml:"kind"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

func loadParamRanges(path string) (map[string]optimizer.ParamRange, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read param-ranges: %w", err)
	}
	var raw map[string]paramRangeFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse param-ranges: %w", err)
	}
	out := make(map[string]optimizer.ParamRange, len(raw))
	for k, v := range raw {
		out[k] = optimizer.ParamRange{Kind: v.Kind, Min: v.Min, Max: v.Max}
	}
	return out, nil
}
