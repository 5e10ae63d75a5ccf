package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/salesreport/internal/domain/sales"
)

// fakePlatform serves canned data and counts calls per lookup key.
type fakePlatform struct {
	mu sync.Mutex

	orders   []sales.Order
	total    int // reported total_count, defaults to len(orders)
	pageErr  map[int]error
	short    map[int]int // page -> number of orders actually returned
	statuses map[string][]sales.StatusLabel
	options  []sales.AttributeOption
	products map[string]*sales.Product
	cats     map[int64]string

	statusErr  map[string]error
	optionsErr error

	queries       []sales.OrderQuery
	statusCalls   []string
	optionCalls   int
	productCalls  map[string]int
	categoryCalls map[int64]int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		pageErr:       make(map[int]error),
		short:         make(map[int]int),
		statuses:      make(map[string][]sales.StatusLabel),
		statusErr:     make(map[string]error),
		products:      make(map[string]*sales.Product),
		cats:          make(map[int64]string),
		productCalls:  make(map[string]int),
		categoryCalls: make(map[int64]int),
	}
}

func (f *fakePlatform) ListOrders(ctx context.Context, q sales.OrderQuery) (*sales.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	if err := f.pageErr[q.Page]; err != nil {
		return nil, err
	}
	total := f.total
	if total == 0 {
		total = len(f.orders)
	}

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if n, ok := f.short[q.Page]; ok {
		end = start + n
	}
	if start > len(f.orders) {
		start = len(f.orders)
	}
	if end > len(f.orders) {
		end = len(f.orders)
	}
	return &sales.OrderPage{Orders: f.orders[start:end], TotalCount: total}, nil
}

func (f *fakePlatform) ListOrderStatuses(ctx context.Context, endpoint string) ([]sales.StatusLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, endpoint)
	if err := f.statusErr[endpoint]; err != nil {
		return nil, err
	}
	labels, ok := f.statuses[endpoint]
	if !ok {
		return nil, fmt.Errorf("%s: %w", endpoint, sales.ErrNotFound)
	}
	return labels, nil
}

func (f *fakePlatform) ListAttributeOptions(ctx context.Context, code string) ([]sales.AttributeOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optionCalls++
	if f.optionsErr != nil {
		return nil, f.optionsErr
	}
	return f.options, nil
}

func (f *fakePlatform) GetProduct(ctx context.Context, sku string) (*sales.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls[sku]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := f.products[sku]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", sku, sales.ErrNotFound)
	}
	return p, nil
}

func (f *fakePlatform) GetCategory(ctx context.Context, id int64) (*sales.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls[id]++
	name, ok := f.cats[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, sales.ErrNotFound)
	}
	return &sales.Category{ID: id, Name: name}, nil
}

var errUpstream = errors.New("upstream unavailable")

var _ sales.Platform = (*fakePlatform)(nil)
