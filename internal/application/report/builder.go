package report

import (
	"context"
	"sort"
	"strings"

	"github.com/erp/salesreport/internal/domain/sales"
	"go.uber.org/zap"
)

// categorySeparator joins category names in a row
const categorySeparator = ", "

// RowBuilder flattens orders into report rows.
type RowBuilder struct {
	cache  *LookupCache
	logger *zap.Logger
}

// NewRowBuilder creates a builder enriching rows from cache.
func NewRowBuilder(cache *LookupCache, logger *zap.Logger) *RowBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowBuilder{cache: cache, logger: logger}
}

// Build emits one row per top-level item of every order, sorted by
// transaction date. Child items of configurable and bundle products are
// skipped. Lookup failures degrade fields to "" and never abort the build.
func (b *RowBuilder) Build(ctx context.Context, orders []sales.Order) ([]sales.Row, error) {
	b.cache.StatusLabels(ctx)
	b.cache.SaleswomanOptions(ctx)

	var rows []sales.Row
	for i := range orders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order := &orders[i]
		status := b.cache.StatusLabel(ctx, order.Status)
		net := order.NetTotal()
		city := order.City()
		region := order.Region()

		for _, item := range order.TopLevelItems() {
			var product *sales.Product
			if item.SKU != "" {
				product = b.cache.Product(ctx, item.SKU)
			}

			rows = append(rows, sales.Row{
				MPN:             product.Attribute(sales.AttributeMPN),
				TransactionID:   order.IncrementID,
				TransactionDate: order.CreatedAt,
				Status:          status,
				ProductName:     item.Name,
				ProductRevenue:  item.RowTotal,
				City:            city,
				Region:          region,
				NetTotal:        net,
				GrandTotal:      order.GrandTotal,
				CustomerEmail:   order.CustomerEmail,
				CustomerTaxVat:  order.CustomerTaxVat,
				Categories:      b.categories(ctx, product),
				Saleswoman:      b.cache.SaleswomanLabel(ctx, product.Attribute(sales.AttributeSaleswoman)),
			})
		}
	}

	sales.SortRows(rows)
	b.logger.Info("Report rows built", zap.Int("rows", len(rows)), zap.Int("orders", len(orders)))
	return rows, nil
}

// categories returns the distinct names of the product categories, sorted
// and joined. Unresolved categories are left out.
func (b *RowBuilder) categories(ctx context.Context, product *sales.Product) string {
	if product == nil || len(product.CategoryIDs) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(product.CategoryIDs))
	names := make([]string, 0, len(product.CategoryIDs))
	for _, id := range product.CategoryIDs {
		name := b.cache.CategoryName(ctx, id)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, categorySeparator)
}
