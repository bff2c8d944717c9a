package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "time/tzdata"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// setupTestStore opens a fresh database in a temp dir with a fixed clock.
func setupTestStore(t *testing.T, loc *time.Location) *Store {
	t.Helper()
	if loc == nil {
		loc = time.UTC
	}
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), Options{Location: loc})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.SetClock(func() time.Time { return base.Add(time.Hour) })
	return s
}

func report(typ string, start time.Time, from, to int) PeriodReport {
	return PeriodReport{
		Hostname:        "pc-01",
		Username:        "ana",
		PeriodType:      typ,
		StartTime:       start.Add(time.Duration(from) * time.Second),
		EndTime:         start.Add(time.Duration(to) * time.Second),
		DurationSeconds: int64(to - from),
	}
}

func TestReportPeriodCreatesThenExtends(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	first, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 300))
	require.NoError(t, err)
	assert.False(t, first.Updated)

	second, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 600))
	require.NoError(t, err)
	assert.True(t, second.Updated)
	assert.Equal(t, first.ID, second.ID)

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01"})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, int64(600), periods[0].DurationSeconds)
	assert.True(t, periods[0].StartTime.Equal(base))
	assert.True(t, periods[0].EndTime.Equal(base.Add(600*time.Second)))
}

func TestReportPeriodRejectsUnknownType(t *testing.T) {
	s := setupTestStore(t, nil)

	_, err := s.ReportPeriod(context.Background(), report("sleeping", base, 0, 10))
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestReportPeriodEndToEnd(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 300))
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 600))
	require.NoError(t, err)
	res, err := s.ReportPeriod(ctx, report(models.PeriodInactive, base, 600, 650))
	require.NoError(t, err)
	assert.False(t, res.Updated)

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01", Username: "ana"})
	require.NoError(t, err)
	require.Len(t, periods, 2)
	// newest first
	assert.Equal(t, models.PeriodInactive, periods[0].PeriodType)
	assert.Equal(t, int64(50), periods[0].DurationSeconds)
	assert.Equal(t, models.PeriodActive, periods[1].PeriodType)
	assert.Equal(t, int64(600), periods[1].DurationSeconds)

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(600), sum.TotalActiveSeconds)
	assert.Equal(t, int64(50), sum.TotalInactiveSeconds)
	assert.True(t, sum.FirstActivity.Equal(base))
	assert.True(t, sum.LastActivity.Equal(base.Add(650*time.Second)))
}

func TestSummaryCountsFinalDurationOnce(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	for _, d := range []int{10, 40, 90} {
		_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, d))
		require.NoError(t, err)
	}

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(90), sum.TotalActiveSeconds+sum.TotalInactiveSeconds)
}

func TestStaleCheckpointDoesNotShrinkPeriod(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 120))
	require.NoError(t, err)
	res, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 60))
	require.NoError(t, err)
	assert.True(t, res.Updated)

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01"})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, int64(120), periods[0].DurationSeconds)

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(120), sum.TotalActiveSeconds)
}

func TestPeriodsNeverOverlap(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	seq := []struct {
		typ      string
		from, to int
	}{
		{models.PeriodActive, 0, 60},
		{models.PeriodActive, 0, 120},
		{models.PeriodInactive, 120, 180},
		{models.PeriodInactive, 120, 240},
		{models.PeriodActive, 240, 300},
		{models.PeriodInactive, 300, 310},
		{models.PeriodActive, 310, 400},
		{models.PeriodActive, 310, 460},
	}
	for _, r := range seq {
		_, err := s.ReportPeriod(ctx, report(r.typ, base, r.from, r.to))
		require.NoError(t, err)
	}

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01", Username: "ana"})
	require.NoError(t, err)
	require.Len(t, periods, 5)
	for i := 1; i < len(periods); i++ {
		newer, older := periods[i-1], periods[i]
		assert.False(t, newer.StartTime.Before(older.EndTime), "periods %d and %d overlap", older.ID, newer.ID)
		assert.NotEqual(t, newer.PeriodType, older.PeriodType)
	}
}

func TestLateRetryReCheckpointsItsOwnPeriod(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	first, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 300))
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodInactive, base, 300, 350))
	require.NoError(t, err)

	res, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 300))
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, first.ID, res.ID)

	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, base, 100, 200))
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, base, 300, 320))
	assert.ErrorIs(t, err, models.ErrConflict, "same start as the latest period with another type")

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01", Username: "ana"})
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, base.Add(300*time.Second), periods[1].EndTime.UTC())

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(300), sum.TotalActiveSeconds)
	assert.Equal(t, int64(50), sum.TotalInactiveSeconds)
}

func TestLateRetryNeverRunsIntoTheNextPeriod(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 300))
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodInactive, base, 300, 350))
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 330))
	require.NoError(t, err)

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01", Username: "ana"})
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.False(t, periods[0].StartTime.Before(periods[1].EndTime))
}

func TestSmallerDurationDoesNotLowerPeriod(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	checkpoints := []struct {
		to       int
		duration int64
	}{
		{100, 100},
		{150, 50},
		{200, 120},
	}
	for _, cp := range checkpoints {
		r := report(models.PeriodActive, base, 0, cp.to)
		r.DurationSeconds = cp.duration
		_, err := s.ReportPeriod(ctx, r)
		require.NoError(t, err)
	}

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01"})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, int64(120), periods[0].DurationSeconds)
	assert.Equal(t, base.Add(200*time.Second), periods[0].EndTime.UTC())

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(120), sum.TotalActiveSeconds)
}

func TestConcurrentReportsCreateOnePeriod(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, d*10))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	periods, err := s.ListPeriods(ctx, PeriodQuery{Hostname: "pc-01"})
	require.NoError(t, err)
	assert.Len(t, periods, 1)
}

func TestCheckpointAcrossMidnightStaysOnStartDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	s := setupTestStore(t, loc)
	ctx := context.Background()

	start := time.Date(2024, 3, 4, 23, 50, 0, 0, loc)
	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, start, 0, 300))
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodActive, start, 0, 1800))
	require.NoError(t, err)

	sum, err := s.Summary(ctx, "pc-01", "ana", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(1800), sum.TotalActiveSeconds)

	_, err = s.Summary(ctx, "pc-01", "ana", "2024-03-05")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListPeriodsGate(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base.Add(-3*time.Hour), 0, 60)) // 06:00
	require.NoError(t, err)
	_, err = s.ReportPeriod(ctx, report(models.PeriodInactive, base, 0, 60)) // 09:00
	require.NoError(t, err)

	periods, err := s.ListPeriods(ctx, PeriodQuery{Gate: activity.BusinessHours()})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, models.PeriodInactive, periods[0].PeriodType)
}

func TestEventsLifecycle(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	ev := &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: "code", PID: 42, StartTime: base}
	require.NoError(t, s.CreateEvent(ctx, ev))
	require.NotZero(t, ev.ID)

	err := s.UpdateEvent(ctx, ev.ID, EventUpdate{})
	assert.True(t, models.IsValidation(err))

	end := base.Add(90 * time.Second)
	d := int64(90)
	require.NoError(t, s.UpdateEvent(ctx, ev.ID, EventUpdate{EndTime: &end, DurationSeconds: &d}))

	got, err := s.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
	assert.Equal(t, int64(90), *got.DurationSeconds)

	err = s.UpdateEvent(ctx, 9999, EventUpdate{EndTime: &end})
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.GetEvent(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListEventsExcludesIgnored(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	for _, exe := range []string{"code", "explorer", "chrome"} {
		require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: exe, StartTime: base}))
	}
	_, err := s.AddIgnored(ctx, "explorer", nil)
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, EventQuery{Username: "ana", ExcludeIgnored: true})
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.NotEqual(t, "explorer", ev.Executable)
	}
}

func TestIgnoredExecutables(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	row, err := s.AddIgnored(ctx, "explorer", nil)
	require.NoError(t, err)

	_, err = s.AddIgnored(ctx, "explorer", nil)
	assert.ErrorIs(t, err, models.ErrConflict)

	ignored, err := s.IsIgnored(ctx, "explorer")
	require.NoError(t, err)
	assert.True(t, ignored)

	require.NoError(t, s.RemoveIgnored(ctx, row.ID))
	assert.ErrorIs(t, s.RemoveIgnored(ctx, row.ID), models.ErrNotFound)
}

func TestUserTotals(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	d := func(n int64) *int64 { return &n }
	rows := []models.ActivityEvent{
		{Hostname: "pc-01", Username: "ana", Executable: "code", StartTime: base, DurationSeconds: d(3600)},
		{Hostname: "pc-01", Username: "ana", Executable: "chrome", StartTime: base.Add(time.Hour), DurationSeconds: d(1800)},
		{Hostname: "pc-02", Username: "bia", Executable: "code", StartTime: base, DurationSeconds: d(60)},
	}
	for i := range rows {
		require.NoError(t, s.CreateEvent(ctx, &rows[i]))
	}

	totals, err := s.UserTotals(ctx, activity.DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "ana", totals[0].Username)
	assert.Equal(t, int64(5400), totals[0].TotalSeconds)
	assert.Equal(t, int64(2), totals[0].UniqueApps)
	assert.Equal(t, 1.5, totals[0].TotalHours)
	assert.Equal(t, 0.02, totals[1].TotalHours, "60s rounds to the nearest hundredth")
	assert.True(t, totals[0].FirstActivity.Equal(base))
	assert.True(t, totals[0].LastActivity.Equal(base.Add(time.Hour)))
}

func TestExecutableSubstringIsLiteral(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	for _, exe := range []string{"a_b", "axb", "100%cpu"} {
		require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: exe, StartTime: base}))
	}

	tests := []struct {
		like string
		want []string
	}{
		{"_", []string{"a_b"}},
		{"%", []string{"100%cpu"}},
		{"X", []string{"axb"}},
		{`\`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.like, func(t *testing.T) {
			events, err := s.ListEvents(ctx, EventQuery{ExecutableLike: tt.like})
			require.NoError(t, err)
			var got []string
			for _, ev := range events {
				got = append(got, ev.Executable)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	computers, err := s.ListComputers(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, computers)
}

func TestPresenceAndSnapshot(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()
	now := s.Now()

	_, err := s.GetPresence(ctx, "pc-01", "ana")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.RecordInput(ctx, "pc-01", "ana", now.Add(-30*time.Second)))
	require.NoError(t, s.SaveSnapshot(ctx, "pc-01", "ana", now.Add(-10*time.Second), []models.OpenWindow{
		{Executable: "code", PID: 1, WindowTitle: "main.go", IsActive: true},
		{Executable: "chrome", PID: 2, WindowTitle: "docs"},
	}))

	p, err := s.GetPresence(ctx, "pc-01", "ana")
	require.NoError(t, err)
	assert.Equal(t, activity.StatusActive, p.Status(now))

	snap, err := s.RecentSnapshot(ctx, "pc-01", "ana")
	require.NoError(t, err)
	active, others := snap.Active()
	require.NotNil(t, active)
	assert.Equal(t, "code", active.Executable)
	assert.Len(t, others, 1)

	// replacing keeps one row per key
	require.NoError(t, s.SaveSnapshot(ctx, "pc-01", "ana", now.Add(-10*time.Minute), nil))
	_, err = s.RecentSnapshot(ctx, "pc-01", "ana")
	assert.ErrorIs(t, err, models.ErrNotFound)

	all, err := s.ListPresence(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, activity.StatusOffline, all[0].Status(now))
}

func TestPurgeComputer(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, base, 0, 60))
	require.NoError(t, err)
	require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: "code", StartTime: base}))
	require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-02", Username: "ana", Executable: "code", StartTime: base}))
	require.NoError(t, s.RecordInput(ctx, "pc-01", "ana", base))
	_, err = s.AddIgnored(ctx, "explorer", nil)
	require.NoError(t, err)

	deleted, err := s.PurgeComputer(ctx, "pc-01", "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted["activity_events"])
	assert.Equal(t, int64(1), deleted["activity_periods"])
	assert.Equal(t, int64(1), deleted["daily_activity_summary"])
	assert.Equal(t, int64(1), deleted["last_input_activity"])
	assert.Equal(t, int64(4), deleted.Total())

	left, err := s.ListEvents(ctx, EventQuery{Username: "ana"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "pc-02", left[0].Hostname)

	ignored, err := s.ListIgnored(ctx)
	require.NoError(t, err)
	assert.Len(t, ignored, 1)
}

func TestCleanupOlderThan(t *testing.T) {
	s := setupTestStore(t, nil)
	ctx := context.Background()

	old := base.AddDate(0, 0, -40)
	require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: "code", StartTime: old}))
	require.NoError(t, s.CreateEvent(ctx, &models.ActivityEvent{Hostname: "pc-01", Username: "ana", Executable: "code", StartTime: base}))
	_, err := s.ReportPeriod(ctx, report(models.PeriodActive, old, 0, 60))
	require.NoError(t, err)

	deleted, err := s.CleanupOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted["activity_events"])
	assert.Equal(t, int64(1), deleted["activity_periods"])
	assert.Equal(t, int64(1), deleted["daily_activity_summary"])

	_, err = s.CleanupOlderThan(ctx, 0)
	assert.True(t, models.IsValidation(err))
}
