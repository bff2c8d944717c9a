package agent

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"activity-monitor/internal/models"
)

// ErrUnsupported is returned by probes on platforms without a backend.
var ErrUnsupported = errors.New("desktop probing is not supported on this platform")

// Probe samples the local desktop.
type Probe interface {
	ActiveWindow(ctx context.Context) (Window, error)
	IdleTime(ctx context.Context) (time.Duration, error)
	OpenWindows(ctx context.Context) ([]models.OpenWindow, error)
}

// run executes a helper command and returns its trimmed stdout.
func run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// markActive flags the entry matching the focused window.
func markActive(windows []models.OpenWindow, active Window) {
	for i := range windows {
		if windows[i].PID == active.PID && windows[i].WindowTitle == active.Title {
			windows[i].IsActive = true
			return
		}
	}
}
