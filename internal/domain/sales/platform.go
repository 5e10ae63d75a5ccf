package sales

import "context"

// Status listing endpoints, in the order they are tried.
const (
	OrderStatusesPath          = "orders/statuses"
	OrderStatusesAlternatePath = "order/statuses"
)

// Platform is the read side of the commerce platform the report needs.
//
// Catalog lookups return an error wrapping ErrNotFound when the platform
// does not know the resource.
type Platform interface {
	// ListOrders returns one page of orders created inside the query window,
	// sorted by creation time ascending.
	ListOrders(ctx context.Context, query OrderQuery) (*OrderPage, error)

	// ListOrderStatuses reads the status label listing at endpoint.
	ListOrderStatuses(ctx context.Context, endpoint string) ([]StatusLabel, error)

	// ListAttributeOptions returns the options of a product attribute.
	ListAttributeOptions(ctx context.Context, attributeCode string) ([]AttributeOption, error)

	// GetProduct returns the product stored under sku.
	GetProduct(ctx context.Context, sku string) (*Product, error)

	// GetCategory returns the category with the given id.
	GetCategory(ctx context.Context, id int64) (*Category, error)
}
