package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/backtester/config"
	"github.com/alejandrodnm/backtester/internal/adapters/notify"
	"github.com/alejandrodnm/backtester/internal/adapters/polygon"
	"github.com/alejandrodnm/backtester/internal/adapters/storage"
	"github.com/alejandrodnm/backtester/internal/backtest"
	"github.com/alejandrodnm/backtester/internal/report"
	"github.com/alejandrodnm/backtester/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	universePath := flag.String("universe", "config/universe.yaml", "path to ticker universe file")
	months := flag.Int("months", 0, "months to backtest (overrides config)")
	scorer := flag.String("scorer", "eps", "sector leader scorer: eps|eps-growth|price")
	curve := flag.Bool("curve", false, "print the full valuation curve")
	verbose := flag.Bool("verbose", false, "set log level to debug and print holdings per slice")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *months > 0 {
		cfg.Backtest.MonthsBack = *months
	}
	setupLogger(cfg.Log)

	universe, err := config.LoadUniverse(*universePath)
	if err != nil {
		slog.Error("failed to load universe", "err", err, "path", *universePath)
		os.Exit(1)
	}

	score, err := scorerByName(*scorer)
	if err != nil {
		slog.Error("invalid scorer", "err", err)
		os.Exit(1)
	}

	slog.Info("backtester starting",
		"config", *configPath,
		"universe", len(universe),
		"months_back", cfg.Backtest.MonthsBack,
		"benchmark", cfg.Report.Benchmark,
		"scorer", *scorer,
	)

	client := polygon.NewClient(polygon.Config{
		BaseURL:         cfg.Market.BaseURL,
		APIKey:          cfg.Market.APIKey,
		Timeout:         cfg.MarketTimeout(),
		ReferenceSymbol: cfg.Report.Benchmark,
	})
	defer client.Close()

	cache, err := storage.NewSeriesStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer cache.Close()

	market := storage.NewCachedMarketData(client, cache)

	engineCfg := backtest.DefaultConfig()
	engineCfg.MonthsBack = cfg.Backtest.MonthsBack
	engineCfg.MaxParallel = cfg.Backtest.MaxParallel

	engine := backtest.New(engineCfg, universe, market,
		strategy.NewSectorLeaders(cfg.Backtest.TopN, score))

	reporter := report.New(report.Config{
		Benchmark:    cfg.Report.Benchmark,
		ResampleDays: cfg.Report.ResampleDays,
		MaxParallel:  cfg.Backtest.MaxParallel,
	}, market)

	notifier := notify.NewConsole(*curve, *verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := engine.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	valuation, stats, err := reporter.Build(ctx, result.RunID, result.Slices)
	if err != nil {
		slog.Error("report failed", "err", err, "run_id", result.RunID)
		os.Exit(1)
	}

	if err := notifier.Notify(ctx, valuation, stats, result.Slices); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	slog.Info("backtester finished", "run_id", result.RunID, "slices", len(result.Slices))
}

func scorerByName(name string) (strategy.Scorer, error) {
	switch name {
	case "eps":
		return strategy.ScoreByEPS, nil
	case "eps-growth":
		return strategy.ScoreByEPSGrowth, nil
	case "price":
		return strategy.ScoreByPrice, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q (want eps, eps-growth or price)", name)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
