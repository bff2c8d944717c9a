// Package agent implements the end-user side: it samples the desktop through
// a Probe and reports periods, focus sessions, input heartbeats and open
// window snapshots to the server.
package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"activity-monitor/internal/models"
)

// Client talks to the server API on behalf of one (hostname, username).
type Client struct {
	http     *resty.Client
	Hostname string
	Username string
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      uint   `json:"id"`
	Updated bool   `json:"updated"`
	Data    struct {
		ID uint `json:"id"`
	} `json:"data"`
}

// NewClient builds a client for baseURL. Transport errors and 5xx responses
// are retried with backoff.
func NewClient(baseURL, hostname, username string) *Client {
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Client{http: hc, Hostname: hostname, Username: username}
}

func stamp(t time.Time) string { return t.Format(time.RFC3339) }

func (c *Client) send(ctx context.Context, method, path string, body any) (*apiResponse, error) {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &out, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status(), out.Message)
	}
	return &out, nil
}

// ReportPeriod sends a period report; updated tells whether the server
// extended its current period.
func (c *Client) ReportPeriod(ctx context.Context, periodType string, start, end time.Time, duration int64) (updated bool, err error) {
	out, err := c.send(ctx, resty.MethodPost, "/api/activity-periods", map[string]any{
		"hostname":         c.Hostname,
		"username":         c.Username,
		"period_type":      periodType,
		"start_time":       stamp(start),
		"end_time":         stamp(end),
		"duration_seconds": duration,
	})
	if err != nil {
		return false, err
	}
	return out.Updated, nil
}

// RecordInput reports the time of the last mouse/keyboard input.
func (c *Client) RecordInput(ctx context.Context, at time.Time) error {
	_, err := c.send(ctx, resty.MethodPost, "/api/mouse-activity", map[string]any{
		"hostname":      c.Hostname,
		"username":      c.Username,
		"last_activity": stamp(at),
	})
	return err
}

// SendSnapshot reports the open windows.
func (c *Client) SendSnapshot(ctx context.Context, at time.Time, windows []models.OpenWindow) error {
	_, err := c.send(ctx, resty.MethodPost, "/api/windows-snapshot", map[string]any{
		"hostname":  c.Hostname,
		"username":  c.Username,
		"timestamp": stamp(at),
		"windows":   windows,
	})
	return err
}

// CreateActivity records a focus session and returns its id. A zero end
// leaves the session open.
func (c *Client) CreateActivity(ctx context.Context, w Window, start, end time.Time) (uint, error) {
	body := map[string]any{
		"hostname":     c.Hostname,
		"username":     c.Username,
		"executable":   w.Executable,
		"pid":          w.PID,
		"window_title": w.Title,
		"start_time":   stamp(start),
	}
	if !end.IsZero() {
		body["end_time"] = stamp(end)
		body["duration_seconds"] = int64(end.Sub(start) / time.Second)
	}
	out, err := c.send(ctx, resty.MethodPost, "/api/window-activity", body)
	if err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

// UpdateActivity moves the end of session id.
func (c *Client) UpdateActivity(ctx context.Context, id uint, start, end time.Time) error {
	_, err := c.send(ctx, resty.MethodPut, "/api/window-activity/"+strconv.FormatUint(uint64(id), 10), map[string]any{
		"end_time":         stamp(end),
		"duration_seconds": int64(end.Sub(start) / time.Second),
	})
	return err
}

// Register announces the machine to the server.
func (c *Client) Register(ctx context.Context, osName, ip string) error {
	_, err := c.send(ctx, resty.MethodPost, "/api/computer/register", map[string]any{
		"hostname":   c.Hostname,
		"username":   c.Username,
		"os":         osName,
		"ip_address": ip,
	})
	return err
}
