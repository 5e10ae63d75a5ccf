package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/export"
	"github.com/erp/salesreport/internal/infrastructure/logger"
	"github.com/erp/salesreport/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ReportBuilder builds one report run. *report.Service satisfies it.
type ReportBuilder interface {
	Build(ctx context.Context, window sales.Window) (*report.Report, error)
}

// ReportHandler serves sales reports built on demand. Every request is an
// independent run with its own lookup cache.
type ReportHandler struct {
	BaseHandler
	builder   ReportBuilder
	configErr error
	location  *time.Location
	delimiter rune
	timeout   time.Duration
	now       func() time.Time
}

// ReportHandlerOption configures a ReportHandler
type ReportHandlerOption func(*ReportHandler)

// WithDelimiter sets the delimiter of CSV downloads
func WithDelimiter(d rune) ReportHandlerOption {
	return func(h *ReportHandler) {
		h.delimiter = d
	}
}

// WithTimeout bounds each run
func WithTimeout(d time.Duration) ReportHandlerOption {
	return func(h *ReportHandler) {
		h.timeout = d
	}
}

// WithClock overrides the clock used to default the dates
func WithClock(now func() time.Time) ReportHandlerOption {
	return func(h *ReportHandler) {
		h.now = now
	}
}

// WithConfigError marks the handler as unconfigured: every request fails
// with NOT_CONFIGURED carrying err.
func WithConfigError(err error) ReportHandlerOption {
	return func(h *ReportHandler) {
		h.configErr = err
	}
}

// NewReportHandler creates a new ReportHandler. Dates are interpreted in loc.
func NewReportHandler(builder ReportBuilder, loc *time.Location, opts ...ReportHandlerOption) *ReportHandler {
	h := &ReportHandler{
		builder:   builder,
		location:  loc,
		delimiter: export.DefaultDelimiter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.location == nil {
		h.location = time.Local
	}
	return h
}

// RegisterRoutes registers the sales routes under rg
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sales")
	g.GET("/report", h.GetReport)
	g.GET("/stats", h.GetStats)
}

// GetReport returns the report rows of a date range as JSON, or as a CSV
// download with format=csv.
//
//	GET /api/v1/sales/report?start=YYYY-MM-DD&end=YYYY-MM-DD[&format=csv]
func (h *ReportHandler) GetReport(c *gin.Context) {
	query, window, ok := h.parse(c)
	if !ok {
		return
	}

	r, ok := h.build(c, window)
	if !ok {
		return
	}

	rows := []sales.Row{}
	if r != nil && len(r.Rows) > 0 {
		rows = r.Rows
	}

	if query.WantsCSV() {
		h.writeCSV(c, window, rows)
		return
	}
	h.SuccessWithMeta(c, rows, dto.NewMeta(r, window))
}

// GetStats returns the sales statistics of a date range.
//
//	GET /api/v1/sales/stats?start=YYYY-MM-DD&end=YYYY-MM-DD[&top=N]
func (h *ReportHandler) GetStats(c *gin.Context) {
	query, window, ok := h.parse(c)
	if !ok {
		return
	}

	r, ok := h.build(c, window)
	if !ok {
		return
	}

	stats := sales.Summarize(nil)
	if r != nil {
		stats = r.Stats
	}
	h.SuccessWithMeta(c, dto.NewStatsResponse(stats, query.TopOrDefault()), dto.NewMeta(r, window))
}

func (h *ReportHandler) parse(c *gin.Context) (dto.ReportQuery, sales.Window, bool) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		code := dto.ErrCodeInvalidQuery
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Start" || fe.Field() == "End" {
					code = dto.ErrCodeInvalidDate
				}
			}
		}
		h.Error(c, code, err.Error())
		return query, sales.Window{}, false
	}

	window, err := sales.NewWindow(query.Start, query.End, h.location, h.now())
	if err != nil {
		h.BadRequest(c, err.Error())
		return query, sales.Window{}, false
	}
	return query, window, true
}

// build runs the report. The nothing-to-do outcomes are not failures: the
// (possibly nil) report is returned with ok set.
func (h *ReportHandler) build(c *gin.Context, window sales.Window) (*report.Report, bool) {
	if h.builder == nil || h.configErr != nil {
		if h.configErr != nil {
			logger.L(c.Request.Context()).Warn("Report requested without configuration", zap.Error(h.configErr))
		}
		h.Error(c, dto.ErrCodeNotConfigured, "Magento connection is not configured")
		return nil, false
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	r, err := h.builder.Build(ctx, window)
	if err != nil && !sales.IsNothingToDo(err) {
		h.HandleError(c, err)
		return nil, false
	}
	return r, true
}

func (h *ReportHandler) writeCSV(c *gin.Context, window sales.Window, rows []sales.Row) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(window)+`"`)
	c.Status(http.StatusOK)
	if err := export.EncodeCSV(c.Writer, rows, h.delimiter); err != nil {
		_ = c.Error(err)
		logger.L(c.Request.Context()).Error("Failed to stream CSV", zap.Error(err))
	}
}
