package agent

import (
	"context"
	"time"

	"activity-monitor/internal/logging"
	"activity-monitor/internal/models"
)

// PeriodReporter is the part of Client the period tracker needs.
type PeriodReporter interface {
	ReportPeriod(ctx context.Context, periodType string, start, end time.Time, duration int64) (bool, error)
}

// PeriodTracker turns idle-time samples into period reports. While the
// classification holds it checkpoints the open period with its cumulative
// duration; on a change it sends the closing report and opens a new one.
type PeriodTracker struct {
	reporter        PeriodReporter
	threshold       time.Duration
	checkpointEvery time.Duration

	periodType     string
	start          time.Time
	lastCheckpoint time.Time
}

func NewPeriodTracker(r PeriodReporter, idleThreshold, checkpointEvery time.Duration) *PeriodTracker {
	return &PeriodTracker{reporter: r, threshold: idleThreshold, checkpointEvery: checkpointEvery}
}

// Current returns the open period type and its start.
func (t *PeriodTracker) Current() (string, time.Time) { return t.periodType, t.start }

// Observe feeds one sample taken at now.
func (t *PeriodTracker) Observe(ctx context.Context, now time.Time, idle time.Duration) error {
	state := models.PeriodActive
	if idle >= t.threshold {
		state = models.PeriodInactive
	}

	switch {
	case t.periodType == "":
		t.open(state, now)
		return nil
	case state != t.periodType:
		err := t.report(ctx, now)
		logging.Logger.Debug("period changed", "from", t.periodType, "to", state, "idle", idle)
		t.open(state, now)
		return err
	case now.Sub(t.lastCheckpoint) >= t.checkpointEvery:
		t.lastCheckpoint = now
		return t.report(ctx, now)
	}
	return nil
}

// Flush sends the closing report of the open period.
func (t *PeriodTracker) Flush(ctx context.Context, now time.Time) error {
	if t.periodType == "" {
		return nil
	}
	err := t.report(ctx, now)
	t.periodType = ""
	return err
}

func (t *PeriodTracker) open(state string, now time.Time) {
	t.periodType, t.start, t.lastCheckpoint = state, now, now
}

// report sends the open period up to now. Spans under a second are skipped.
func (t *PeriodTracker) report(ctx context.Context, now time.Time) error {
	d := int64(now.Sub(t.start) / time.Second)
	if d < 1 {
		return nil
	}
	_, err := t.reporter.ReportPeriod(ctx, t.periodType, t.start, now, d)
	return err
}

// Window identifies the focused window.
type Window struct {
	Executable string
	PID        int
	Title      string
}

func (w Window) same(o Window) bool {
	return w.Executable == o.Executable && w.Title == o.Title
}

// ActivityReporter is the part of Client the focus tracker needs.
type ActivityReporter interface {
	CreateActivity(ctx context.Context, w Window, start, end time.Time) (uint, error)
	UpdateActivity(ctx context.Context, id uint, start, end time.Time) error
}

type session struct {
	id             uint
	window         Window
	start          time.Time
	lastCheckpoint time.Time
}

// FocusTracker turns foreground-window samples into focus sessions: a new
// record when the window changes, a checkpoint of the open record every
// checkpointEvery, and a final update when it loses focus.
type FocusTracker struct {
	reporter        ActivityReporter
	checkpointEvery time.Duration
	cur             *session
}

func NewFocusTracker(r ActivityReporter, checkpointEvery time.Duration) *FocusTracker {
	return &FocusTracker{reporter: r, checkpointEvery: checkpointEvery}
}

// Observe feeds the window focused at now. An empty executable means nothing
// is focused and is ignored.
func (f *FocusTracker) Observe(ctx context.Context, now time.Time, w Window) error {
	if w.Executable == "" {
		return nil
	}
	if f.cur != nil && f.cur.window.same(w) {
		if now.Sub(f.cur.lastCheckpoint) < f.checkpointEvery {
			return nil
		}
		f.cur.lastCheckpoint = now
		return f.sync(ctx, now)
	}

	var err error
	if f.cur != nil {
		err = f.sync(ctx, now)
	}
	f.cur = &session{window: w, start: now, lastCheckpoint: now}
	id, createErr := f.reporter.CreateActivity(ctx, w, now, time.Time{})
	if createErr != nil {
		return createErr
	}
	f.cur.id = id
	return err
}

// Close ends the open session.
func (f *FocusTracker) Close(ctx context.Context, now time.Time) error {
	if f.cur == nil {
		return nil
	}
	err := f.sync(ctx, now)
	f.cur = nil
	return err
}

// sync writes the open session's end as now. When the session was never
// created on the server it is created whole.
func (f *FocusTracker) sync(ctx context.Context, now time.Time) error {
	s := f.cur
	if now.Sub(s.start) < time.Second {
		return nil
	}
	if s.id == 0 {
		id, err := f.reporter.CreateActivity(ctx, s.window, s.start, now)
		if err != nil {
			return err
		}
		s.id = id
		return nil
	}
	return f.reporter.UpdateActivity(ctx, s.id, s.start, now)
}
