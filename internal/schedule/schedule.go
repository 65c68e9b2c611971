// Package schedule owns the repeated invocation of the pipeline. The
// pipeline itself stays a pure run-once entry point; this loop decides when
// to call it and skips a slot when the previous run is still going.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Options controls the loop cadence. When At is set ("HH:MM"), the loop runs
// daily at that wall-clock time and Every is ignored; otherwise it runs every
// Every (default 24h).
type Options struct {
	Every time.Duration
	At    string
}

// Loop invokes fn on the configured cadence until ctx is cancelled. A slot
// firing while the previous run is still in progress is skipped, never
// queued. Loop returns once ctx is done and any in-flight run has finished.
func Loop(ctx context.Context, opts Options, logger *slog.Logger, fn func(context.Context)) error {
	every := opts.Every
	if every <= 0 {
		every = 24 * time.Hour
	}

	var wg sync.WaitGroup
	var running atomic.Bool
	launch := func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous run still in progress, skipping this slot")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer running.Store(false)
			fn(ctx)
		}()
	}

	next := func(now time.Time) (time.Time, error) {
		if opts.At == "" {
			return now.Add(every), nil
		}
		return nextAt(now, opts.At)
	}

	at, err := next(time.Now())
	if err != nil {
		return err
	}
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-timer.C:
			launch()
			at, err = next(time.Now())
			if err != nil {
				wg.Wait()
				return err
			}
			timer.Reset(time.Until(at))
		}
	}
}

// nextAt returns the next daily occurrence of the "HH:MM" wall-clock time
// strictly after now.
func nextAt(now time.Time, at string) (time.Time, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
