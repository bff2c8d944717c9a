package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	tests := []struct {
		name     string
		input    *time.Time
		snapshot *time.Time
		want     Status
	}{
		{"input 59s old is active", ago(59 * time.Second), ago(10 * time.Second), StatusActive},
		{"input exactly 60s old is inactive", ago(60 * time.Second), ago(10 * time.Second), StatusInactive},
		{"no input with a recent snapshot is inactive", nil, ago(10 * time.Second), StatusInactive},
		{"no snapshot is offline even with fresh input", ago(time.Second), nil, StatusOffline},
		{"snapshot exactly 5m old is offline", ago(time.Second), ago(5 * time.Minute), StatusOffline},
		{"snapshot just under 5m old counts", ago(time.Second), ago(5*time.Minute - time.Second), StatusActive},
		{"nothing known is offline", nil, nil, StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(now, tt.input, tt.snapshot))
		})
	}
}

func TestSecondsSince(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, SecondsSince(now, nil))

	then := now.Add(-90 * time.Second)
	got := SecondsSince(now, &then)
	if assert.NotNil(t, got) {
		assert.Equal(t, int64(90), *got)
	}
}
