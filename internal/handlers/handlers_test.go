package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-monitor/internal/store"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"), store.Options{Location: time.UTC})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	st.SetClock(func() time.Time { return now })
	return NewRouter(NewMonitorHandler(st, 30)), st
}

func do(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func period(typ, start, end string, d int) map[string]any {
	return map[string]any{
		"hostname":         "pc-01",
		"username":         "ana",
		"period_type":      typ,
		"start_time":       start,
		"end_time":         end,
		"duration_seconds": d,
	}
}

func TestReportPeriodStatuses(t *testing.T) {
	r, _ := setupRouter(t)

	code, body := do(t, r, http.MethodPost, "/api/activity-periods", period("active", "2024-03-04 09:00:00", "2024-03-04 09:05:00", 300))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["updated"])
	id := body["id"]

	code, body = do(t, r, http.MethodPost, "/api/activity-periods", period("active", "2024-03-04 09:00:00", "2024-03-04 09:10:00", 600))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["updated"])
	assert.Equal(t, id, body["id"])

	code, _ = do(t, r, http.MethodPost, "/api/activity-periods", period("inactive", "2024-03-04 09:10:00", "2024-03-04 09:10:50", 50))
	require.Equal(t, http.StatusCreated, code)

	code, body = do(t, r, http.MethodGet, "/api/activity-period-statistics?hostname=pc-01", nil)
	require.Equal(t, http.StatusOK, code)
	stats := body["data"].(map[string]any)
	assert.Equal(t, float64(600), stats["active_seconds"])
	assert.Equal(t, float64(50), stats["inactive_seconds"])
	assert.Equal(t, 92.31, stats["active_percentage"])

	code, body = do(t, r, http.MethodGet, "/api/activity-statistics?date=2024-03-04", nil)
	require.Equal(t, http.StatusOK, code)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, float64(600), row["total_active_seconds"])
	assert.Equal(t, float64(50), row["total_inactive_seconds"])

	code, body = do(t, r, http.MethodPost, "/api/activity-periods", period("active", "2024-03-04 09:02:00", "2024-03-04 09:04:00", 120))
	assert.Equal(t, http.StatusConflict, code, "a period starting inside an earlier one is rejected")
	assert.Equal(t, false, body["success"])
}

func TestReportPeriodValidation(t *testing.T) {
	r, _ := setupRouter(t)

	body := period("active", "2024-03-04 09:00:00", "", 300)
	body["hostname"] = "   "
	code, out := do(t, r, http.MethodPost, "/api/activity-periods", body)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, out["success"])
	assert.ElementsMatch(t, []any{"hostname", "end_time"}, out["missing_fields"])

	code, _ = do(t, r, http.MethodPost, "/api/activity-periods", period("sleeping", "2024-03-04 09:00:00", "2024-03-04 09:05:00", 300))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/api/activity-periods", period("active", "yesterday", "2024-03-04 09:05:00", 300))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIgnoredExecutablesConflict(t *testing.T) {
	r, _ := setupRouter(t)

	code, out := do(t, r, http.MethodPost, "/api/ignored-executables", map[string]any{"executable": "explorer.exe"})
	require.Equal(t, http.StatusCreated, code)
	id := out["data"].(map[string]any)["id"]

	code, out = do(t, r, http.MethodPost, "/api/ignored-executables", map[string]any{"executable": "explorer.exe"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, out["success"])

	code, _ = do(t, r, http.MethodDelete, "/api/ignored-executables/"+jsonNumber(id), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodDelete, "/api/ignored-executables/"+jsonNumber(id), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestWindowActivityLifecycle(t *testing.T) {
	r, _ := setupRouter(t)

	code, out := do(t, r, http.MethodPost, "/api/window-activity", map[string]any{
		"hostname":   "pc-01",
		"username":   "ana",
		"executable": "code",
		"pid":        4242,
		"start_time": "2024-03-04 09:00:00",
	})
	require.Equal(t, http.StatusCreated, code)
	id := jsonNumber(out["data"].(map[string]any)["id"])

	code, _ = do(t, r, http.MethodPut, "/api/window-activity/"+id, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPut, "/api/window-activity/"+id, map[string]any{
		"end_time":        "2024-03-04 11:00:00",
		"duration_second": 7200,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPut, "/api/window-activity/999", map[string]any{"end_time": "2024-03-04 11:00:00"})
	assert.Equal(t, http.StatusNotFound, code)

	code, out = do(t, r, http.MethodGet, "/api/window-activities/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(7200), out["data"].(map[string]any)["duration_seconds"])

	code, out = do(t, r, http.MethodGet, "/api/users/ana/stats?date=2024-03-04&businessHours=true&ignoreTimeFrom=10:00&ignoreTimeTo=10:30", nil)
	require.Equal(t, http.StatusOK, code)
	general := out["data"].(map[string]any)["general"].(map[string]any)
	assert.Equal(t, float64(5400), general["total_time_seconds"])

	code, out = do(t, r, http.MethodGet, "/api/top-applications?startDate=2024-03-04&endDate=2024-03-04", nil)
	require.Equal(t, http.StatusOK, code)
	apps := out["data"].([]any)
	require.Len(t, apps, 1)
	assert.Equal(t, "code", apps[0].(map[string]any)["executable"])

	code, out = do(t, r, http.MethodGet, "/api/window-activities?username=ana&executable=CO", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["statistics"].(map[string]any)["total_activities"])
}

func TestActivityStatus(t *testing.T) {
	r, _ := setupRouter(t)

	code, out := do(t, r, http.MethodGet, "/api/computers/pc-01/ana/activity-status", nil)
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown", out["data"].(map[string]any)["status"])

	code, _ = do(t, r, http.MethodPost, "/api/windows-snapshot", map[string]any{
		"hostname":  "pc-01",
		"username":  "ana",
		"timestamp": now.Add(-20 * time.Second).Format(time.RFC3339),
		"windows":   []any{},
	})
	require.Equal(t, http.StatusBadRequest, code, "empty window list counts as missing")

	code, out = do(t, r, http.MethodPost, "/api/windows-snapshot", map[string]any{
		"hostname":  "pc-01",
		"username":  "ana",
		"timestamp": now.Add(-20 * time.Second).Format(time.RFC3339),
		"windows": []any{
			map[string]any{"executable": "code", "pid": 1, "window_title": "main.go", "is_active": true},
		},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["data"].(map[string]any)["windows_count"])

	code, _ = do(t, r, http.MethodPost, "/api/mouse-activity", map[string]any{
		"hostname":      "pc-01",
		"username":      "ana",
		"last_activity": now.Add(-59 * time.Second).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, code)

	code, out = do(t, r, http.MethodGet, "/api/computers/pc-01/ana/activity-status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", out["data"].(map[string]any)["status"])

	code, out = do(t, r, http.MethodGet, "/api/computers/activity-status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"], 1)

	code, out = do(t, r, http.MethodGet, "/api/computers/pc-01/ana/windows-snapshot", nil)
	require.Equal(t, http.StatusOK, code)
	snap := out["data"].(map[string]any)
	assert.Equal(t, "code", snap["active_window"].(map[string]any)["executable"])
	assert.Equal(t, float64(1), snap["total_windows"])
}

func TestPurgeUser(t *testing.T) {
	r, _ := setupRouter(t)

	code, _ := do(t, r, http.MethodPost, "/api/activity-periods", period("active", "2024-03-04 09:00:00", "2024-03-04 09:05:00", 300))
	require.Equal(t, http.StatusCreated, code)

	code, out := do(t, r, http.MethodDelete, "/api/users/ana/records", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), out["total_deleted"])
}

func TestRequestIDAndMetrics(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "activity_monitor_http_request_duration_seconds")
}
