//go:build darwin

package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"activity-monitor/internal/models"
)

type macProbe struct{}

// NewProbe returns the probe for this platform.
func NewProbe() Probe { return macProbe{} }

const frontmostScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	set t to ""
	try
		set t to name of window 1 of p
	end try
	return (name of p) & "|" & (unix id of p) & "|" & t
end tell`

const windowsScript = `set out to ""
tell application "System Events"
	repeat with p in (application processes whose visible is true)
		repeat with w in windows of p
			set out to out & (name of p) & "|" & (unix id of p) & "|" & (name of w) & linefeed
		end repeat
	end repeat
end tell
return out`

func parseMacWindow(line string) (Window, bool) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return Window{}, false
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	return Window{Executable: strings.TrimSpace(parts[0]), PID: pid, Title: strings.TrimSpace(parts[2])}, true
}

func (macProbe) ActiveWindow(ctx context.Context) (Window, error) {
	raw, err := run(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return Window{}, fmt.Errorf("osascript: %w", err)
	}
	w, ok := parseMacWindow(raw)
	if !ok {
		return Window{}, fmt.Errorf("osascript: unexpected output %q", raw)
	}
	return w, nil
}

// IdleTime reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry.
func (macProbe) IdleTime(ctx context.Context) (time.Duration, error) {
	raw, err := run(ctx, "ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ioreg: unexpected HIDIdleTime %q", value)
		}
		return time.Duration(ns), nil
	}
	return 0, fmt.Errorf("ioreg: HIDIdleTime not found")
}

func (p macProbe) OpenWindows(ctx context.Context) ([]models.OpenWindow, error) {
	raw, err := run(ctx, "osascript", "-e", windowsScript)
	if err != nil {
		return nil, fmt.Errorf("osascript: %w", err)
	}
	var windows []models.OpenWindow
	for _, line := range strings.Split(raw, "\n") {
		w, ok := parseMacWindow(line)
		if !ok || w.Title == "" {
			continue
		}
		windows = append(windows, models.OpenWindow{Executable: w.Executable, PID: w.PID, WindowTitle: w.Title})
	}
	if active, err := p.ActiveWindow(ctx); err == nil {
		markActive(windows, active)
	}
	return windows, nil
}
