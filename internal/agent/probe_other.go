//go:build !linux && !darwin && !windows

package agent

import (
	"context"
	"time"

	"activity-monitor/internal/models"
)

type noProbe struct{}

// NewProbe returns the probe for this platform.
func NewProbe() Probe { return noProbe{} }

func (noProbe) ActiveWindow(context.Context) (Window, error) {
	return Window{}, ErrUnsupported
}

func (noProbe) IdleTime(context.Context) (time.Duration, error) {
	return 0, ErrUnsupported
}

func (noProbe) OpenWindows(context.Context) ([]models.OpenWindow, error) {
	return nil, ErrUnsupported
}
