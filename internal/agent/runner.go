package agent

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"activity-monitor/internal/config"
	"activity-monitor/internal/logging"
	"activity-monitor/internal/models"
)

// inputWindow is how recent the last input must be to send a heartbeat.
const inputWindow = 5 * time.Second

// Reporter is everything the runner sends to the server.
type Reporter interface {
	PeriodReporter
	ActivityReporter
	RecordInput(ctx context.Context, at time.Time) error
	SendSnapshot(ctx context.Context, at time.Time, windows []models.OpenWindow) error
}

// Runner drives the sampling loops of one agent.
type Runner struct {
	reporter Reporter
	probe    Probe
	cfg      config.Agent
	now      func() time.Time

	periods *PeriodTracker
	focus   *FocusTracker
}

func NewRunner(r Reporter, p Probe, cfg config.Agent) *Runner {
	return &Runner{
		reporter: r,
		probe:    p,
		cfg:      cfg,
		now:      time.Now,
		periods:  NewPeriodTracker(r, cfg.IdleThreshold, cfg.CheckpointInterval),
		focus:    NewFocusTracker(r, cfg.CheckpointInterval),
	}
}

// Run samples until ctx is cancelled, then closes the open period and focus
// session with a fresh context.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.every(ctx, r.cfg.PeriodInterval, "period", r.samplePeriod) })
	g.Go(func() error { return r.every(ctx, r.cfg.PollInterval, "focus", r.sampleFocus) })
	g.Go(func() error { return r.every(ctx, r.cfg.MouseInterval, "input", r.sampleInput) })
	g.Go(func() error { return r.every(ctx, r.cfg.SnapshotInterval, "snapshot", r.sampleSnapshot) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := r.now()
	if ferr := r.periods.Flush(flushCtx, now); ferr != nil {
		logging.Logger.Warn("final period report failed", "error", ferr)
	}
	if ferr := r.focus.Close(flushCtx, now); ferr != nil {
		logging.Logger.Warn("final focus update failed", "error", ferr)
	}
	return err
}

// every runs sample immediately and then on each tick. Sample errors are
// logged and the loop keeps going.
func (r *Runner) every(ctx context.Context, interval time.Duration, name string, sample func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := sample(ctx); err != nil && ctx.Err() == nil {
			logging.Logger.Warn("sample failed", "loop", name, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) samplePeriod(ctx context.Context) error {
	idle, err := r.probe.IdleTime(ctx)
	if err != nil {
		return err
	}
	return r.periods.Observe(ctx, r.now(), idle)
}

func (r *Runner) sampleFocus(ctx context.Context) error {
	w, err := r.probe.ActiveWindow(ctx)
	if err != nil {
		return err
	}
	return r.focus.Observe(ctx, r.now(), w)
}

func (r *Runner) sampleInput(ctx context.Context) error {
	idle, err := r.probe.IdleTime(ctx)
	if err != nil {
		return err
	}
	if idle >= inputWindow {
		return nil
	}
	return r.reporter.RecordInput(ctx, r.now().Add(-idle))
}

func (r *Runner) sampleSnapshot(ctx context.Context) error {
	windows, err := r.probe.OpenWindows(ctx)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return nil
	}
	return r.reporter.SendSnapshot(ctx, r.now(), windows)
}
