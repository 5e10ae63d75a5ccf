package report

import (
	"context"
	"fmt"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 1000
)

// OrderFetcher pages through the orders of a window.
type OrderFetcher struct {
	platform sales.Platform
	pageSize int
	maxPages int
	logger   *zap.Logger
}

// NewOrderFetcher creates a fetcher. Non-positive sizes use the defaults.
func NewOrderFetcher(platform sales.Platform, pageSize, maxPages int, logger *zap.Logger) *OrderFetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderFetcher{
		platform: platform,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Fetch returns every order created in [window.Start, window.End), in the
// order the platform returned them. Paging stops once the reported total is
// reached or a page comes back empty; more than maxPages pages is an error.
func (f *OrderFetcher) Fetch(ctx context.Context, window sales.Window) ([]sales.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.fetch_orders",
		telemetry.AttrWindowStart.String(window.StartTimestamp()),
		telemetry.AttrWindowEnd.String(window.EndTimestamp()),
	)
	defer span.End()

	if err := window.Validate(); err != nil {
		return nil, err
	}

	f.logger.Info("Fetching orders",
		zap.String("start", window.StartTimestamp()),
		zap.String("end", window.EndTimestamp()),
		zap.Int("page_size", f.pageSize),
	)

	var orders []sales.Order
	for page := 1; ; page++ {
		if page > f.maxPages {
			err := fmt.Errorf("%w: stopped after %d pages with %d orders",
				sales.ErrPageLimitExceeded, f.maxPages, len(orders))
			telemetry.RecordError(span, err)
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := f.platform.ListOrders(ctx, sales.OrderQuery{
			Window:   window,
			Page:     page,
			PageSize: f.pageSize,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("fetch orders page %d: %w", page, err)
		}

		orders = append(orders, resp.Orders...)
		f.logger.Info("Orders page fetched",
			zap.Int("page", page),
			zap.Int("page_orders", len(resp.Orders)),
			zap.Int("accumulated", len(orders)),
			zap.Int("total_count", resp.TotalCount),
		)

		if len(orders) >= resp.TotalCount || len(resp.Orders) == 0 {
			break
		}
	}

	span.SetAttributes(telemetry.AttrOrderCount.Int(len(orders)))
	f.logger.Info("Orders fetched", zap.Int("count", len(orders)))
	return orders, nil
}
