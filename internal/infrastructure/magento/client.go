package magento

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/erp/salesreport/internal/domain/sales"
	"go.uber.org/zap"
)

// Endpoint paths relative to the REST root
const (
	ordersPath           = "orders"
	productsPath         = "products"
	categoriesPath       = "categories"
	attributeOptionsPath = "products/attributes/%s/options"
)

// Client is the sales.Platform adapter for Magento 2
type Client struct {
	gateway *Gateway
	logger  *zap.Logger
}

// NewClient creates a Client on top of gateway
func NewClient(gateway *Gateway, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{gateway: gateway, logger: logger}
}

// New wires transport, gateway and client from cfg.
func New(cfg *Config, opts ...TransportOption) (*Client, error) {
	o := &transportOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	transport, err := NewTransport(cfg, opts...)
	if err != nil {
		return nil, err
	}
	gateway, err := NewGateway(cfg, transport, o.logger)
	if err != nil {
		return nil, err
	}
	return NewClient(gateway, o.logger), nil
}

// OrderSearchQuery builds the searchCriteria parameters of one orders page:
// created_at >= start AND created_at < end, ascending by created_at.
func OrderSearchQuery(q sales.OrderQuery) Query {
	return Query{
		"searchCriteria[filter_groups][0][filters][0][field]":          "created_at",
		"searchCriteria[filter_groups][0][filters][0][value]":          q.Window.StartTimestamp(),
		"searchCriteria[filter_groups][0][filters][0][condition_type]": "gteq",
		"searchCriteria[filter_groups][1][filters][0][field]":          "created_at",
		"searchCriteria[filter_groups][1][filters][0][value]":          q.Window.EndTimestamp(),
		"searchCriteria[filter_groups][1][filters][0][condition_type]": "lt",
		"searchCriteria[pageSize]":                                     strconv.Itoa(q.PageSize),
		"searchCriteria[currentPage]":                                  strconv.Itoa(q.Page),
		"searchCriteria[sortOrders][0][field]":                         "created_at",
		"searchCriteria[sortOrders][0][direction]":                     "ASC",
	}
}

// ListOrders returns one page of the orders search
func (c *Client) ListOrders(ctx context.Context, query sales.OrderQuery) (*sales.OrderPage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var resp orderSearchResponse
	if err := c.gateway.Get(ctx, ordersPath, OrderSearchQuery(query), &resp); err != nil {
		return nil, err
	}

	page := &sales.OrderPage{
		Orders:     make([]sales.Order, 0, len(resp.Items)),
		TotalCount: resp.TotalCount,
	}
	for i := range resp.Items {
		page.Orders = append(page.Orders, resp.Items[i].toDomain())
	}
	return page, nil
}

// ListOrderStatuses reads the status labels at endpoint. A missing label
// falls back to the status code.
func (c *Client) ListOrderStatuses(ctx context.Context, endpoint string) ([]sales.StatusLabel, error) {
	var resp []statusJSON
	if err := c.gateway.Get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	labels := make([]sales.StatusLabel, 0, len(resp))
	for _, s := range resp {
		label := s.Status
		if s.Label != nil {
			label = *s.Label
		}
		labels = append(labels, sales.StatusLabel{Status: s.Status, Label: label})
	}
	return labels, nil
}

// ListAttributeOptions returns the options of a select attribute. Options
// without a value or without a label are dropped.
func (c *Client) ListAttributeOptions(ctx context.Context, attributeCode string) ([]sales.AttributeOption, error) {
	endpoint := fmt.Sprintf(attributeOptionsPath, url.PathEscape(attributeCode))

	var resp []optionJSON
	if err := c.gateway.Get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	options := make([]sales.AttributeOption, 0, len(resp))
	for _, o := range resp {
		value := attributeText(o.Value)
		if value == "" || o.Label == "" {
			continue
		}
		options = append(options, sales.AttributeOption{Value: value, Label: o.Label})
	}
	return options, nil
}

// GetProduct fetches a product by SKU. The SKU is escaped as a single path
// segment since it may contain "/" or spaces.
func (c *Client) GetProduct(ctx context.Context, sku string) (*sales.Product, error) {
	var resp productJSON
	if err := c.gateway.Get(ctx, productsPath+"/"+url.PathEscape(sku), nil, &resp); err != nil {
		return nil, err
	}
	product := resp.toDomain()
	if product.SKU == "" {
		product.SKU = sku
	}
	return product, nil
}

// GetCategory fetches a category by id
func (c *Client) GetCategory(ctx context.Context, id int64) (*sales.Category, error) {
	var resp categoryJSON
	if err := c.gateway.Get(ctx, categoriesPath+"/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &sales.Category{ID: id, Name: resp.Name}, nil
}

var _ sales.Platform = (*Client)(nil)
