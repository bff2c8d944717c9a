//go:build windows

package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"syscall"
	"time"
	"unsafe"

	"activity-monitor/internal/models"
)

var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetLastInputInfo         = user32.NewProc("GetLastInputInfo")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetTickCount             = kernel32.NewProc("GetTickCount")
	procOpenProcess              = kernel32.NewProc("OpenProcess")
	procCloseHandle              = kernel32.NewProc("CloseHandle")
	procQueryFullProcessImageW   = kernel32.NewProc("QueryFullProcessImageNameW")
)

const processQueryLimitedInformation = 0x1000

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type win32Probe struct{}

// NewProbe returns the probe for this platform.
func NewProbe() Probe { return win32Probe{} }

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), n+1)
	return syscall.UTF16ToString(buf)
}

func windowPID(hwnd uintptr) int {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return int(pid)
}

func executableName(pid int) string {
	h, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if h == 0 {
		return "unknown"
	}
	defer procCloseHandle.Call(h)
	buf := make([]uint16, syscall.MAX_PATH)
	size := uint32(len(buf))
	ok, _, _ := procQueryFullProcessImageW.Call(h, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ok == 0 {
		return "unknown"
	}
	return filepath.Base(syscall.UTF16ToString(buf[:size]))
}

func (win32Probe) ActiveWindow(context.Context) (Window, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return Window{}, nil
	}
	pid := windowPID(hwnd)
	return Window{Executable: executableName(pid), PID: pid, Title: windowText(hwnd)}, nil
}

func (win32Probe) IdleTime(context.Context) (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	tick, _, _ := procGetTickCount.Call()
	return time.Duration(uint32(tick)-info.dwTime) * time.Millisecond, nil
}

func (p win32Probe) OpenWindows(ctx context.Context) ([]models.OpenWindow, error) {
	var windows []models.OpenWindow
	cb := syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1
		}
		title := windowText(hwnd)
		if title == "" {
			return 1
		}
		pid := windowPID(hwnd)
		windows = append(windows, models.OpenWindow{Executable: executableName(pid), PID: pid, WindowTitle: title})
		return 1
	})
	procEnumWindows.Call(cb, 0)
	if active, err := p.ActiveWindow(ctx); err == nil {
		markActive(windows, active)
	}
	return windows, nil
}
