package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-monitor/internal/store"
)

type fakeCleaner struct {
	days    []int
	deleted store.Deleted
	err     error
}

func (f *fakeCleaner) CleanupOlderThan(_ context.Context, days int) (store.Deleted, error) {
	f.days = append(f.days, days)
	return f.deleted, f.err
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(&fakeCleaner{}, "not a schedule", 30, time.UTC)
	assert.Error(t, err)

	_, err = New(&fakeCleaner{}, "@daily", 0, time.UTC)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	cleaner := &fakeCleaner{deleted: store.Deleted{"activity_events": 3, "activity_periods": 2}}
	s, err := New(cleaner, "0 3 * * *", 30, time.UTC)
	require.NoError(t, err)

	deleted, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted.Total())
	assert.Equal(t, []int{30}, cleaner.days)

	cleaner.err = errors.New("disk full")
	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "disk full")
}

func TestRunStopsWithContext(t *testing.T) {
	s, err := New(&fakeCleaner{}, "@every 1h", 30, time.UTC)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
