package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goflags "github.com/jessevdk/go-flags"

	"github.com/gh2csv/gh2csv/config"
	"github.com/gh2csv/gh2csv/internal/history"
	"github.com/gh2csv/gh2csv/internal/logging"
	"github.com/gh2csv/gh2csv/internal/metrics"
	"github.com/gh2csv/gh2csv/internal/pipeline"
	"github.com/gh2csv/gh2csv/internal/schedule"
)

type options struct {
	Echo     bool   `long:"echo" description:"Print the loaded configuration and exit"`
	Once     bool   `long:"once" description:"Run once and exit even when a schedule is configured"`
	History  int    `long:"history" description:"Print the last N recorded runs and exit" default:"0"`
	LogLevel string `long:"log-level" description:"Log verbosity" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	JSON     bool   `long:"json" description:"Log in JSON format"`

	Args struct {
		Config string `positional-arg-name:"CONFIG" description:"Configuration file (.yaml)"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	parser := goflags.NewParser(&opts, goflags.Default)
	parser.Name = "gh2csv"
	parser.LongDescription = "Fetch GitHub feature records, filter them, and export them to CSV files."

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}

	logger := logging.New(opts.LogLevel, opts.JSON)

	cfg, err := config.Load(opts.Args.Config)
	if err != nil {
		return err
	}

	if opts.Echo {
		dump, err := cfg.Dump()
		if err != nil {
			return err
		}
		fmt.Printf("Content of [%s]\n", opts.Args.Config)
		fmt.Print(dump)
		return nil
	}

	store, err := history.New(cfg.Run.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Initialize(); err != nil {
		return err
	}

	if opts.History > 0 {
		return printHistory(store, opts.History)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.New(cfg, logger)
	runner.SetHistory(store)

	var m *metrics.Metrics
	if cfg.Run.Metrics.Enable {
		m = metrics.New()
		runner.SetMetrics(m)
		listen := cfg.Run.Metrics.Listen
		if listen == "" {
			listen = ":9090"
		}
		go func() {
			if err := m.Serve(listen); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer m.Shutdown(context.Background())
		logger.Info("metrics listening", "addr", listen)
	}

	if cfg.Run.Schedule.Enable && !opts.Once {
		logger.Info("running in scheduled mode",
			"every", cfg.Run.Schedule.Every, "at", cfg.Run.Schedule.At)
		err := schedule.Loop(ctx, schedule.Options{
			Every: cfg.Run.Schedule.Every,
			At:    cfg.Run.Schedule.At,
		}, logger, func(ctx context.Context) {
			reportFailures(logger, runner.RunAll(ctx))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	results := runner.RunAll(ctx)
	if failed := countFailures(results); failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}

func countFailures(results []pipeline.Result) int {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	return failed
}

func reportFailures(logger *slog.Logger, results []pipeline.Result) {
	if failed := countFailures(results); failed > 0 {
		logger.Error("scheduled run completed with failures",
			"failed", failed, "targets", len(results))
	}
}

func printHistory(store *history.Store, limit int) error {
	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	fmt.Printf("%-19s  %-20s  %-6s  %8s  %6s  %7s  %s\n",
		"STARTED", "TARGET", "STATUS", "FETCHED", "KEPT", "WRITTEN", "ERROR")
	for _, run := range runs {
		fmt.Printf("%-19s  %-20s  %-6s  %8d  %6d  %7d  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Target, run.Status, run.Fetched, run.Kept, run.Written, run.Error)
	}
	return nil
}
