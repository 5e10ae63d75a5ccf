package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/salesreport/internal/domain/sales"
	logging "github.com/erp/salesreport/internal/infrastructure/logger"
	"github.com/erp/salesreport/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run outcomes reported to RunObserver
const (
	OutcomeSuccess   = "success"
	OutcomeNoOrders  = "no_orders"
	OutcomeNoRows    = "no_rows"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Report is the output of one run.
type Report struct {
	RunID       uuid.UUID
	Window      sales.Window
	GeneratedAt time.Time
	OrderCount  int
	Rows        []sales.Row
	Stats       sales.Stats
	Lookups     CacheStats
}

// Artifact is where a sink put the report.
type Artifact struct {
	Sink     string
	Location string
}

// Sink persists a finished report.
type Sink interface {
	Name() string
	Write(ctx context.Context, report *Report) (Artifact, error)
}

// RunObserver is told the outcome of every run.
type RunObserver interface {
	ObserveRun(ctx context.Context, outcome string, rows int, elapsed time.Duration)
}

// Config tunes the order pagination.
type Config struct {
	PageSize int
	MaxPages int
}

// Service runs reports. Each call to Build or Run starts from an empty
// lookup cache, so nothing fetched in one run is reused by another.
type Service struct {
	platform sales.Platform
	config   Config
	sinks    []Sink
	observer RunObserver
	logger   *zap.Logger
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithSinks sets the sinks Run writes to, in order
func WithSinks(sinks ...Sink) ServiceOption {
	return func(s *Service) {
		s.sinks = sinks
	}
}

// WithRunObserver registers a RunObserver
func WithRunObserver(observer RunObserver) ServiceOption {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a report service.
func NewService(platform sales.Platform, cfg Config, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		platform: platform,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build fetches and flattens the orders of window. When the window has no
// orders or no qualifying items it returns the (empty) report together with
// sales.ErrNoOrders or sales.ErrNoRows.
func (s *Service) Build(ctx context.Context, window sales.Window) (*Report, error) {
	report := &Report{
		RunID:       uuid.New(),
		Window:      window,
		GeneratedAt: s.now(),
	}
	ctx, logger := logging.WithRunID(ctx, s.logger, report.RunID.String())

	ctx, span := telemetry.StartSpan(ctx, "report.build", telemetry.AttrRunID.String(report.RunID.String()))
	defer span.End()

	orders, err := NewOrderFetcher(s.platform, s.config.PageSize, s.config.MaxPages, logger).Fetch(ctx, window)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report.OrderCount = len(orders)
	report.Stats = sales.Summarize(orders)
	if len(orders) == 0 {
		logger.Info("No orders in window",
			zap.String("start_date", window.StartDate()),
			zap.String("end_date", window.EndDate()),
		)
		return report, sales.ErrNoOrders
	}

	cache := NewLookupCache(s.platform, logger)
	rows, err := NewRowBuilder(cache, logger).Build(ctx, orders)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report.Rows = rows
	report.Lookups = cache.Stats()
	span.SetAttributes(telemetry.AttrRowCount.Int(len(rows)))

	if len(rows) == 0 {
		logger.Info("No top-level items in window", zap.Int("orders", len(orders)))
		return report, sales.ErrNoRows
	}

	logger.Info("Report built",
		zap.Int("orders", report.OrderCount),
		zap.Int("rows", len(rows)),
		zap.Int("product_lookups", report.Lookups.ProductLookups),
		zap.Int("product_failures", report.Lookups.ProductFailures),
		zap.Int("category_lookups", report.Lookups.CategoryLookups),
		zap.String("total_sales", sales.FormatMoney(report.Stats.TotalSales)),
		zap.String("average_ticket", sales.FormatMoney(report.Stats.AverageTicket)),
	)
	return report, nil
}

// Run builds the report and writes it to every sink. Nothing is written for
// an empty window.
func (s *Service) Run(ctx context.Context, window sales.Window) (*Report, []Artifact, error) {
	start := s.now()

	report, err := s.Build(ctx, window)
	if err != nil {
		s.observe(ctx, outcomeOf(err), report, start)
		return report, nil, err
	}

	artifacts := make([]Artifact, 0, len(s.sinks))
	for _, sink := range s.sinks {
		artifact, err := sink.Write(ctx, report)
		if err != nil {
			s.observe(ctx, OutcomeFailed, report, start)
			return report, artifacts, fmt.Errorf("write report to %s: %w", sink.Name(), err)
		}
		s.logger.Info("Report written",
			zap.String("run_id", report.RunID.String()),
			zap.String("sink", artifact.Sink),
			zap.String("location", artifact.Location),
		)
		artifacts = append(artifacts, artifact)
	}

	s.observe(ctx, OutcomeSuccess, report, start)
	return report, artifacts, nil
}

func (s *Service) observe(ctx context.Context, outcome string, report *Report, start time.Time) {
	if s.observer == nil {
		return
	}
	rows := 0
	if report != nil {
		rows = len(report.Rows)
	}
	s.observer.ObserveRun(context.WithoutCancel(ctx), outcome, rows, s.now().Sub(start))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, sales.ErrNoOrders):
		return OutcomeNoOrders
	case errors.Is(err, sales.ErrNoRows):
		return OutcomeNoRows
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
