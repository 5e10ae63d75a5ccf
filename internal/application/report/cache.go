package report

import (
	"context"
	"errors"

	"github.com/erp/salesreport/internal/domain/sales"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// StatusSource is one way of loading the status label listing.
type StatusSource struct {
	Name string
	Load func(ctx context.Context) ([]sales.StatusLabel, error)
}

// DefaultStatusSources tries the primary listing and then the alternate path.
func DefaultStatusSources(platform sales.Platform) []StatusSource {
	endpoints := []string{sales.OrderStatusesPath, sales.OrderStatusesAlternatePath}
	sources := make([]StatusSource, 0, len(endpoints))
	for _, endpoint := range endpoints {
		sources = append(sources, StatusSource{
			Name: endpoint,
			Load: func(ctx context.Context) ([]sales.StatusLabel, error) {
				return platform.ListOrderStatuses(ctx, endpoint)
			},
		})
	}
	return sources
}

// CacheStats counts platform lookups issued by a LookupCache.
type CacheStats struct {
	StatusLoads     int
	OptionLoads     int
	ProductLookups  int
	ProductFailures int
	CategoryLookups int
	CategoryMisses  int
}

// LookupCache memoizes the catalog lookups of one run. Every key is fetched
// at most once; a failed lookup is remembered as the empty value and never
// retried. A LookupCache belongs to a single run and is not safe for
// concurrent use.
type LookupCache struct {
	platform      sales.Platform
	statusSources []StatusSource
	logger        *zap.Logger

	statuses         map[string]string
	statusesLoaded   bool
	saleswomen       map[string]string
	saleswomenLoaded bool
	products         map[string]*sales.Product
	categories       map[int64]string

	stats CacheStats
}

// CacheOption configures a LookupCache
type CacheOption func(*LookupCache)

// WithStatusSources replaces the status fallback chain
func WithStatusSources(sources ...StatusSource) CacheOption {
	return func(c *LookupCache) {
		c.statusSources = sources
	}
}

// NewLookupCache creates an empty cache backed by platform.
func NewLookupCache(platform sales.Platform, logger *zap.Logger, opts ...CacheOption) *LookupCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &LookupCache{
		platform:   platform,
		logger:     logger,
		statuses:   make(map[string]string),
		saleswomen: make(map[string]string),
		products:   make(map[string]*sales.Product),
		categories: make(map[int64]string),
	}
	c.statusSources = DefaultStatusSources(platform)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusLabels loads the status code to label map on first use. When every
// source fails the map stays empty and codes are shown verbatim.
func (c *LookupCache) StatusLabels(ctx context.Context) map[string]string {
	if c.statusesLoaded {
		return c.statuses
	}
	c.statusesLoaded = true

	for _, source := range c.statusSources {
		c.stats.StatusLoads++
		labels, err := source.Load(ctx)
		if err != nil {
			c.logger.Warn("Order status listing failed",
				zap.String("endpoint", source.Name),
				zap.Error(err),
			)
			continue
		}
		for _, l := range labels {
			c.statuses[l.Status] = l.Label
		}
		c.logger.Info("Order status labels loaded",
			zap.String("endpoint", source.Name),
			zap.Int("count", len(c.statuses)),
		)
		return c.statuses
	}

	c.logger.Warn("Order status labels unavailable, using status codes")
	return c.statuses
}

// StatusLabel returns the label of code, or code itself when unknown.
func (c *LookupCache) StatusLabel(ctx context.Context, code string) string {
	if label, ok := c.StatusLabels(ctx)[code]; ok {
		return label
	}
	return code
}

// SaleswomanOptions loads the saleswoman option map on first use.
func (c *LookupCache) SaleswomanOptions(ctx context.Context) map[string]string {
	if c.saleswomenLoaded {
		return c.saleswomen
	}
	c.saleswomenLoaded = true
	c.stats.OptionLoads++

	options, err := c.platform.ListAttributeOptions(ctx, sales.AttributeSaleswoman)
	if err != nil {
		c.logger.Warn("Saleswoman options unavailable", zap.Error(err))
		return c.saleswomen
	}
	for _, o := range options {
		if o.Value == "" || o.Label == "" {
			continue
		}
		c.saleswomen[o.Value] = o.Label
	}
	c.logger.Info("Saleswoman options loaded", zap.Int("count", len(c.saleswomen)))
	return c.saleswomen
}

// SaleswomanLabel resolves a stored attribute value. Values that are not
// option ids are returned verbatim.
func (c *LookupCache) SaleswomanLabel(ctx context.Context, value string) string {
	if value == "" {
		return ""
	}
	if label, ok := c.SaleswomanOptions(ctx)[value]; ok {
		return label
	}
	return value
}

// Product returns the product stored under sku. A failed lookup yields
// the empty record, for this call and every later one.
func (c *LookupCache) Product(ctx context.Context, sku string) *sales.Product {
	if p, ok := c.products[sku]; ok {
		return p
	}

	c.stats.ProductLookups++
	p, err := c.platform.GetProduct(ctx, sku)
	if err != nil {
		c.stats.ProductFailures++
		c.logWarn("Product lookup failed", err, zap.String("sku", sku))
		if ctx.Err() != nil {
			return &sales.Product{SKU: sku}
		}
		p = &sales.Product{SKU: sku}
	}
	c.products[sku] = p
	return p
}

// CategoryName returns the NFC-normalized name of category id, or "" when
// the lookup failed.
func (c *LookupCache) CategoryName(ctx context.Context, id int64) string {
	if name, ok := c.categories[id]; ok {
		return name
	}

	c.stats.CategoryLookups++
	name := ""
	category, err := c.platform.GetCategory(ctx, id)
	if err != nil {
		c.stats.CategoryMisses++
		c.logWarn("Category lookup failed", err, zap.Int64("category_id", id))
		if ctx.Err() != nil {
			return ""
		}
	} else {
		name = norm.NFC.String(category.Name)
	}
	c.categories[id] = name
	return name
}

// Stats returns the lookup counters so far.
func (c *LookupCache) Stats() CacheStats {
	return c.stats
}

func (c *LookupCache) logWarn(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Bool("not_found", errors.Is(err, sales.ErrNotFound)), zap.Error(err))
	c.logger.Warn(msg, fields...)
}
