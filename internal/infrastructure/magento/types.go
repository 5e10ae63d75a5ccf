package magento

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// number holds a JSON number, a numeric string or null as text. Magento is
// not consistent about which one it sends.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = number(strings.TrimSpace(s))
		return nil
	}
	*n = number(b)
	return nil
}

type orderSearchResponse struct {
	Items      []orderJSON `json:"items"`
	TotalCount int         `json:"total_count"`
}

type orderJSON struct {
	EntityID       number       `json:"entity_id"`
	IncrementID    string       `json:"increment_id"`
	CreatedAt      string       `json:"created_at"`
	Status         string       `json:"status"`
	GrandTotal     number       `json:"grand_total"`
	ShippingAmount number       `json:"shipping_amount"`
	CustomerEmail  string       `json:"customer_email"`
	CustomerTaxVat string       `json:"customer_taxvat"`
	BillingAddress *addressJSON `json:"billing_address"`
	Items          []itemJSON   `json:"items"`
}

type addressJSON struct {
	City   string `json:"city"`
	Region string `json:"region"`
}

type itemJSON struct {
	ItemID       number `json:"item_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	RowTotal     number `json:"row_total"`
	ParentItemID number `json:"parent_item_id"`
}

type productJSON struct {
	SKU                 string                `json:"sku"`
	CustomAttributes    []customAttributeJSON `json:"custom_attributes"`
	ExtensionAttributes *struct {
		CategoryLinks []categoryLinkJSON `json:"category_links"`
	} `json:"extension_attributes"`
}

type customAttributeJSON struct {
	AttributeCode string          `json:"attribute_code"`
	Value         json.RawMessage `json:"value"`
}

type categoryLinkJSON struct {
	CategoryID number `json:"category_id"`
}

type categoryJSON struct {
	ID   number `json:"id"`
	Name string `json:"name"`
}

type statusJSON struct {
	Status string  `json:"status"`
	Label  *string `json:"label"`
}

type optionJSON struct {
	Value json.RawMessage `json:"value"`
	Label string          `json:"label"`
}

// ParseDecimal parses a decimal, returning zero for empty or invalid input.
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseID(n number) int64 {
	if n == "" {
		return 0
	}
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// attributeText renders a custom attribute value as text. Multi-select
// values arrive as arrays and are joined with commas.
func attributeText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '[':
		var values []json.RawMessage
		if err := json.Unmarshal(raw, &values); err == nil {
			parts := make([]string, 0, len(values))
			for _, v := range values {
				if s := attributeText(v); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ",")
		}
	}
	return string(raw)
}

func (o *orderJSON) toDomain() sales.Order {
	order := sales.Order{
		IncrementID:    o.IncrementID,
		CreatedAt:      o.CreatedAt,
		Status:         o.Status,
		GrandTotal:     ParseDecimal(string(o.GrandTotal)),
		ShippingAmount: ParseDecimal(string(o.ShippingAmount)),
		CustomerEmail:  o.CustomerEmail,
		CustomerTaxVat: o.CustomerTaxVat,
		Items:          make([]sales.Item, 0, len(o.Items)),
	}
	if o.BillingAddress != nil {
		order.BillingAddress = &sales.Address{
			City:   o.BillingAddress.City,
			Region: o.BillingAddress.Region,
		}
	}
	for _, it := range o.Items {
		order.Items = append(order.Items, sales.Item{
			SKU:          it.SKU,
			Name:         it.Name,
			RowTotal:     ParseDecimal(string(it.RowTotal)),
			ParentItemID: parseID(it.ParentItemID),
		})
	}
	return order
}

func (p *productJSON) toDomain() *sales.Product {
	product := &sales.Product{
		SKU:        p.SKU,
		Attributes: make(sales.Attributes, len(p.CustomAttributes)),
	}
	for _, attr := range p.CustomAttributes {
		if attr.AttributeCode == "" {
			continue
		}
		product.Attributes[attr.AttributeCode] = attributeText(attr.Value)
	}
	if p.ExtensionAttributes != nil {
		for _, link := range p.ExtensionAttributes.CategoryLinks {
			if id := parseID(link.CategoryID); id != 0 {
				product.CategoryIDs = append(product.CategoryIDs, id)
			}
		}
	}
	return product
}
