package dto

import (
	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// DefaultTopN is how many cities and regions the stats ranking lists
const DefaultTopN = 10

// ReportQuery holds the query parameters of the report endpoints.
// Dates are YYYY-MM-DD; an empty date means yesterday.
type ReportQuery struct {
	Start  string `form:"start" binding:"omitempty,datetime=2006-01-02"`
	End    string `form:"end" binding:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" binding:"omitempty,oneof=json csv"`
	Top    int    `form:"top" binding:"omitempty,min=1,max=100"`
}

// WantsCSV reports whether the caller asked for a CSV download
func (q ReportQuery) WantsCSV() bool {
	return q.Format == "csv"
}

// TopOrDefault returns the requested ranking size
func (q ReportQuery) TopOrDefault() int {
	if q.Top > 0 {
		return q.Top
	}
	return DefaultTopN
}

// StatsResponse is the payload of the stats endpoint
type StatsResponse struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	PaidSales       decimal.Decimal `json:"paid_sales"`
	ProcessingSales decimal.Decimal `json:"processing_sales"`
	CancelledSales  decimal.Decimal `json:"cancelled_sales"`
	AverageTicket   decimal.Decimal `json:"average_ticket"`
	OrderCount      int             `json:"order_count"`
	RowCount        int             `json:"row_count"`
	OrdersByStatus  map[string]int  `json:"orders_by_status"`
	TopCities       []sales.Ranked  `json:"top_cities"`
	TopRegions      []sales.Ranked  `json:"top_regions"`
	DailyTrend      []sales.Ranked  `json:"daily_trend"`
}

// NewStatsResponse converts report statistics, keeping the top n cities and regions
func NewStatsResponse(s sales.Stats, n int) StatsResponse {
	byStatus := s.OrdersByStatus
	if byStatus == nil {
		byStatus = map[string]int{}
	}
	return StatsResponse{
		TotalSales:      s.TotalSales,
		PaidSales:       s.PaidSales,
		ProcessingSales: s.ProcessingSales,
		CancelledSales:  s.CancelledSales,
		AverageTicket:   s.AverageTicket,
		OrderCount:      s.OrderCount,
		RowCount:        s.RowCount,
		OrdersByStatus:  byStatus,
		TopCities:       sales.TopN(s.RevenueByCity, n),
		TopRegions:      sales.TopN(s.RevenueByRegion, n),
		DailyTrend:      s.DailyTrend(),
	}
}

// NewMeta describes r. The window is used when the run produced no report.
func NewMeta(r *report.Report, window sales.Window) *Meta {
	meta := &Meta{
		StartDate: window.StartDate(),
		EndDate:   window.EndDate(),
	}
	if r == nil {
		return meta
	}
	meta.RunID = r.RunID.String()
	meta.OrderCount = r.OrderCount
	meta.RowCount = len(r.Rows)
	meta.GeneratedAt = r.GeneratedAt
	return meta
}
