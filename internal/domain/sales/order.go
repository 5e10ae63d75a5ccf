package sales

import (
	"github.com/shopspring/decimal"
)

// Address is the part of an order billing address the report uses.
type Address struct {
	City   string
	Region string
}

// Item is one line of an order.
type Item struct {
	SKU      string
	Name     string
	RowTotal decimal.Decimal
	// ParentItemID is set on synthetic children of configurable and bundle
	// products. Zero means the item is top-level.
	ParentItemID int64
}

// IsChild reports whether the item is a component of another item.
func (i Item) IsChild() bool {
	return i.ParentItemID != 0
}

// Order is an order as fetched from the platform. It is never modified
// after the fetch.
type Order struct {
	IncrementID    string
	CreatedAt      string
	Status         string
	GrandTotal     decimal.Decimal
	ShippingAmount decimal.Decimal
	CustomerEmail  string
	CustomerTaxVat string
	BillingAddress *Address
	Items          []Item
}

// NetTotal is the grand total without shipping.
func (o *Order) NetTotal() decimal.Decimal {
	return o.GrandTotal.Sub(o.ShippingAmount)
}

// City returns the billing city or "" when the order has no billing address.
func (o *Order) City() string {
	if o.BillingAddress == nil {
		return ""
	}
	return o.BillingAddress.City
}

// Region returns the billing region or "".
func (o *Order) Region() string {
	if o.BillingAddress == nil {
		return ""
	}
	return o.BillingAddress.Region
}

// Day is the calendar day prefix of CreatedAt.
func (o *Order) Day() string {
	if len(o.CreatedAt) < len(DateLayout) {
		return o.CreatedAt
	}
	return o.CreatedAt[:len(DateLayout)]
}

// TopLevelItems returns the items that produce report rows.
func (o *Order) TopLevelItems() []Item {
	items := make([]Item, 0, len(o.Items))
	for _, item := range o.Items {
		if item.IsChild() {
			continue
		}
		items = append(items, item)
	}
	return items
}

// OrderQuery selects one page of orders created inside Window.
type OrderQuery struct {
	Window   Window
	Page     int
	PageSize int
}

// Validate checks the query before it is sent to the platform.
func (q OrderQuery) Validate() error {
	if err := q.Window.Validate(); err != nil {
		return err
	}
	if q.Page < 1 {
		return ErrInvalidPage
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	return nil
}

// OrderPage is one page of the orders listing.
type OrderPage struct {
	Orders     []Order
	TotalCount int
}
