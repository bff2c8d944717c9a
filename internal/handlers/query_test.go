package handlers

import (
	"math"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name        string
		page, limit int
		want        []int
	}{
		{"first page", 1, 2, []int{1, 2}},
		{"last partial page", 3, 2, []int{5}},
		{"past the end", 4, 2, []int{}},
		{"limit larger than items", 1, math.MaxInt, items},
		{"huge page", math.MaxInt/2 + 1, 4, []int{}},
		{"max page", math.MaxInt, math.MaxInt, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(items, tt.page, tt.limit))
		})
	}
	assert.Equal(t, 3, totalPages(5, 2))
	assert.Equal(t, 1, totalPages(5, math.MaxInt))
}

func TestHugePageIsEmptyNotError(t *testing.T) {
	r, _ := setupRouter(t)

	code, _ := do(t, r, http.MethodPost, "/api/window-activity", map[string]any{
		"hostname":   "pc-01",
		"username":   "ana",
		"executable": "code",
		"pid":        1,
		"start_time": "2024-03-04 09:00:00",
		"end_time":   "2024-03-04 09:30:00",
	})
	require.Equal(t, http.StatusCreated, code)

	code, out := do(t, r, http.MethodGet, "/api/window-activities?page="+strconv.Itoa(math.MaxInt/2+1)+"&limit=4", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Empty(t, out["data"])
}
