package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eazyeats/internal/service"
)

func TestLineQtyUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    lineQty
		wantErr bool
	}{
		{`2`, 2, false},
		{`2.9`, 2, false},
		{`"3"`, 3, false},
		{`" 4 "`, 4, false},
		{`"1.5"`, 1, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`-1`, -1, false},
		{`"two"`, 0, true},
		{`true`, 0, true},
		{`100000`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var q lineQty
			err := json.Unmarshal([]byte(tt.in), &q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestParsePickup(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T12:05:00Z", time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)},
		{"2024-01-01T12:05:00.250+05:30", time.Date(2024, 1, 1, 12, 5, 0, 250e6, ist)},
		{"2024-01-01T12:05:00", time.Date(2024, 1, 1, 12, 5, 0, 0, ist)},
		{"2024-01-01T12:05:00.5", time.Date(2024, 1, 1, 12, 5, 0, 500e6, ist)},
		{"2024-01-01T12:05", time.Date(2024, 1, 1, 12, 5, 0, 0, ist)},
		{"2024-01-01 12:05:00", time.Date(2024, 1, 1, 12, 5, 0, 0, ist)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePickup(tt.in, ist)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	for _, bad := range []string{"", "noon", "01/01/2024 12:05", "2024-13-01T12:05:00Z"} {
		_, err := parsePickup(bad, ist)
		assert.ErrorIs(t, err, errInvalidPickup, bad)
	}
}

func TestFailMapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{errors.Wrap(service.ErrSlotFull, "slot 12:00"), http.StatusTooManyRequests, "Time slot at capacity"},
		{service.ErrInvalidTransition, http.StatusConflict, "Invalid status transition"},
		{service.ErrPaymentsDisabled, http.StatusServiceUnavailable, "Payments not configured"},
		{service.ErrUploadsDisabled, http.StatusInternalServerError, "Cloudinary not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			fail(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}
