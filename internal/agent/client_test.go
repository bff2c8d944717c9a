package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReportPeriod(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/activity-periods", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"id":7,"updated":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-01", "ana")
	updated, err := c.ReportPeriod(context.Background(), "active", at(0), at(90), 90)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "pc-01", got["hostname"])
	assert.Equal(t, "2024-03-04T09:00:00Z", got["start_time"])
	assert.Equal(t, float64(90), got["duration_seconds"])
}

func TestClientCreateAndUpdateActivity(t *testing.T) {
	var bodies []map[string]any
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":42}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-01", "ana")
	id, err := c.CreateActivity(context.Background(), Window{Executable: "code", PID: 1, Title: "x"}, at(0), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.NotContains(t, bodies[0], "end_time")

	require.NoError(t, c.UpdateActivity(context.Background(), id, at(0), at(30)))
	assert.Equal(t, []string{"POST /api/window-activity", "PUT /api/window-activity/42"}, paths)
	assert.Equal(t, float64(30), bodies[1]["duration_seconds"])
}

func TestClientSurfacesValidationErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"missing required fields"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-01", "ana")
	err := c.RecordInput(context.Background(), at(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pc-01", "ana")
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	require.NoError(t, c.Register(context.Background(), "linux", "10.0.0.5"))
	assert.Equal(t, int32(3), calls.Load())
}
