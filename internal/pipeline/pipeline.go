// Package pipeline wires the source, normalizer, filters, aggregator, and
// exporter into per-target runs. Targets are processed independently: one
// target failing never stops the others.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gh2csv/gh2csv/config"
	"github.com/gh2csv/gh2csv/internal/api"
	"github.com/gh2csv/gh2csv/internal/export"
	"github.com/gh2csv/gh2csv/internal/filter"
	"github.com/gh2csv/gh2csv/internal/history"
	"github.com/gh2csv/gh2csv/internal/metrics"
	"github.com/gh2csv/gh2csv/internal/models"
	"github.com/gh2csv/gh2csv/internal/timeseries"
)

// Result is the outcome of processing one target.
type Result struct {
	Target    string
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int
	Kept      int
	Written   int
	Err       error
}

// Runner processes configured targets.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	history *history.Store

	// newSource builds the data source for a resolved target. Swapped out
	// in tests.
	newSource func(t *config.Target) api.Source

	now func() time.Time
}

// New creates a runner for the loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		newSource: defaultSource,
		now:       time.Now,
	}
}

// SetMetrics attaches Prometheus collectors to the runner.
func (r *Runner) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// SetHistory attaches a run-history store to the runner.
func (r *Runner) SetHistory(h *history.Store) {
	r.history = h
}

func defaultSource(t *config.Target) api.Source {
	if t.API == "graphql" {
		return api.NewGraphQLClient(t.Token)
	}
	return api.NewGitHubClient(t.Token)
}

// RunAll processes every active target once and returns one result per
// target attempted. Active names with no matching target definition are
// skipped with a warning.
func (r *Runner) RunAll(ctx context.Context) []Result {
	if len(r.cfg.Run.ActiveTargets) == 0 {
		r.logger.Warn("no active targets configured")
		return nil
	}

	var results []Result
	for _, name := range r.cfg.Run.ActiveTargets {
		if _, ok := r.cfg.Targets[name]; !ok {
			r.logger.Warn("active target not defined, skipping", "target", name)
			continue
		}

		res := r.RunOnce(ctx, name)
		if res.Err != nil {
			r.logger.Error("target failed", "target", name, "error", res.Err)
		} else {
			r.logger.Info("target processed",
				"target", name,
				"fetched", res.Fetched,
				"kept", res.Kept,
				"written", res.Written,
				"duration", res.Duration.Round(time.Millisecond))
		}

		r.record(res)
		results = append(results, res)
	}

	return results
}

// RunOnce processes a single target end to end: fetch, normalize, filter,
// aggregate when in time-series mode, and export.
func (r *Runner) RunOnce(ctx context.Context, name string) Result {
	res := Result{Target: name, StartedAt: r.now()}
	defer func() {
		res.Duration = r.now().Sub(res.StartedAt)
	}()

	target, err := r.cfg.Resolve(name)
	if err != nil {
		res.Err = err
		return res
	}

	engine, err := filter.NewEngine(target.Filters)
	if err != nil {
		res.Err = fmt.Errorf("filter spec for %s: %w", name, err)
		return res
	}

	source := r.newSource(target)

	state := ""
	if target.Filters != nil {
		state = target.Filters.State
	}

	kept, fetched, err := r.collect(ctx, source, target, engine, state)
	if err != nil {
		res.Err = err
		return res
	}
	res.Fetched = fetched

	var rows []export.Row
	if target.TimeSeries {
		// A second pass with state forced to closed, so the summary counts
		// cover both sides regardless of the source's default state.
		closedKept, closedFetched, err := r.collect(ctx, source, target, engine, "closed")
		if err != nil {
			res.Err = err
			return res
		}
		res.Fetched += closedFetched
		kept = append(kept, closedKept...)
		res.Kept = len(kept)

		rows = []export.Row{timeseries.Aggregate(kept, r.now())}
	} else {
		res.Kept = len(kept)
		rows = make([]export.Row, len(kept))
		for i, rec := range kept {
			rows[i] = rec
		}
	}

	if err := os.MkdirAll(target.OutDir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create output directory: %w", err)
		return res
	}

	exporter := &export.Exporter{
		Path:       target.OutFile,
		Encoding:   target.Encoding,
		TimeSeries: target.TimeSeries,
		Logger:     r.logger,
	}
	written, err := exporter.Export(rows, target.Columns)
	res.Written = written
	if err != nil {
		res.Err = fmt.Errorf("export for %s: %w", name, err)
		return res
	}

	return res
}

// collect fetches one pass of raw records, normalizes each exactly once, and
// returns the ones the filter engine keeps along with the fetched count.
func (r *Runner) collect(ctx context.Context, source api.Source, target *config.Target, engine *filter.Engine, state string) ([]*models.Record, int, error) {
	raw, err := source.FetchRecords(ctx, target.Owner, target.Repo, target.Feature, state)
	if err != nil {
		return nil, 0, err
	}

	var kept []*models.Record
	for _, rr := range raw {
		rec := rr.Normalize(target.UTCOffset)
		if engine.Keep(rec) {
			kept = append(kept, rec)
		}
	}
	return kept, len(raw), nil
}

func (r *Runner) record(res Result) {
	status := history.StatusOK
	errText := ""
	if res.Err != nil {
		status = history.StatusFailed
		errText = res.Err.Error()
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(res.Target, status, res.Fetched, res.Kept, res.Written, res.Duration)
	}
	if r.history != nil {
		run := &history.Run{
			Target:    res.Target,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
			Fetched:   res.Fetched,
			Kept:      res.Kept,
			Written:   res.Written,
			Status:    status,
			Error:     errText,
		}
		if err := r.history.SaveRun(run); err != nil {
			r.logger.Error("failed to record run history", "target", res.Target, "error", err)
		}
	}
}
