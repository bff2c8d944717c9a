//go:build linux

package agent

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"activity-monitor/internal/models"
)

// x11Probe shells out to xdotool, xprintidle and wmctrl.
type x11Probe struct{}

// NewProbe returns the probe for this platform.
func NewProbe() Probe { return x11Probe{} }

func processName(pid int) string {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (x11Probe) ActiveWindow(ctx context.Context) (Window, error) {
	title, err := run(ctx, "xdotool", "getwindowfocus", "getwindowname")
	if err != nil {
		return Window{}, fmt.Errorf("xdotool getwindowname: %w", err)
	}
	w := Window{Title: title}
	if raw, err := run(ctx, "xdotool", "getwindowfocus", "getwindowpid"); err == nil {
		w.PID, _ = strconv.Atoi(raw)
	}
	if w.PID > 0 {
		w.Executable = processName(w.PID)
	}
	if w.Executable == "" {
		w.Executable = "unknown"
	}
	return w, nil
}

func (x11Probe) IdleTime(ctx context.Context) (time.Duration, error) {
	raw, err := run(ctx, "xprintidle")
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("xprintidle: unexpected output %q", raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// OpenWindows parses `wmctrl -lp`: id, desktop, pid, host, title.
func (p x11Probe) OpenWindows(ctx context.Context) ([]models.OpenWindow, error) {
	raw, err := run(ctx, "wmctrl", "-lp")
	if err != nil {
		return nil, fmt.Errorf("wmctrl: %w", err)
	}
	var windows []models.OpenWindow
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		pid, _ := strconv.Atoi(fields[2])
		title := strings.Join(fields[4:], " ")
		exe := processName(pid)
		if exe == "" {
			exe = "unknown"
		}
		windows = append(windows, models.OpenWindow{Executable: exe, PID: pid, WindowTitle: title})
	}
	if active, err := p.ActiveWindow(ctx); err == nil {
		markActive(windows, active)
	}
	return windows, nil
}
