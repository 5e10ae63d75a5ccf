package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeNotConfigured, http.StatusInternalServerError},
		{ErrCodeInvalidDate, http.StatusBadRequest},
		{ErrCodeInvalidQuery, http.StatusBadRequest},
		{ErrCodeUpstreamAuthFailed, http.StatusUnauthorized},
		{ErrCodeUpstreamError, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeInvalidDate, "bad date", "req-1")

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"code": "INVALID_DATE", "message": "bad date", "request_id": "req-1"}
	}`, string(body))
}

func TestNewMeta(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	window := sales.Window{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 5, 3, 0, 0, 0, 0, loc),
	}

	t.Run("without report", func(t *testing.T) {
		meta := NewMeta(nil, window)
		assert.Equal(t, "2024-05-01", meta.StartDate)
		assert.Equal(t, "2024-05-02", meta.EndDate)
		assert.Empty(t, meta.RunID)
	})

	t.Run("with report", func(t *testing.T) {
		generated := time.Date(2024, 5, 3, 6, 0, 0, 0, loc)
		r := &report.Report{
			RunID:       uuid.MustParse("6f1c1a8e-4a57-4a5e-9a53-0d4d7c3b2a10"),
			Window:      window,
			GeneratedAt: generated,
			OrderCount:  3,
			Rows:        make([]sales.Row, 5),
		}
		meta := NewMeta(r, window)
		assert.Equal(t, "6f1c1a8e-4a57-4a5e-9a53-0d4d7c3b2a10", meta.RunID)
		assert.Equal(t, 3, meta.OrderCount)
		assert.Equal(t, 5, meta.RowCount)
		assert.Equal(t, generated, meta.GeneratedAt)
	})
}

func TestNewStatsResponse(t *testing.T) {
	stats := sales.Stats{
		TotalSales: decimal.RequireFromString("600"),
		OrderCount: 3,
		RevenueByCity: map[string]decimal.Decimal{
			"São Paulo":      decimal.RequireFromString("300"),
			"Rio de Janeiro": decimal.RequireFromString("200"),
			"Curitiba":       decimal.RequireFromString("100"),
		},
		RevenueByDay: map[string]decimal.Decimal{
			"2024-05-02": decimal.RequireFromString("100"),
			"2024-05-01": decimal.RequireFromString("500"),
		},
	}

	resp := NewStatsResponse(stats, 2)
	require.Len(t, resp.TopCities, 2)
	assert.Equal(t, "São Paulo", resp.TopCities[0].Key)
	assert.Equal(t, "Rio de Janeiro", resp.TopCities[1].Key)
	assert.Empty(t, resp.TopRegions)
	require.Len(t, resp.DailyTrend, 2)
	assert.Equal(t, "2024-05-01", resp.DailyTrend[0].Key)
	assert.NotNil(t, resp.OrdersByStatus)
}

func TestReportQuery(t *testing.T) {
	assert.True(t, ReportQuery{Format: "csv"}.WantsCSV())
	assert.False(t, ReportQuery{}.WantsCSV())
	assert.Equal(t, DefaultTopN, ReportQuery{}.TopOrDefault())
	assert.Equal(t, 3, ReportQuery{Top: 3}.TopOrDefault())
}
