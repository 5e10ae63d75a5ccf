package sales

// Attribute codes read from product custom attributes.
const (
	AttributeMPN        = "mpn"
	AttributeSaleswoman = "saleswoman"
)

// Attributes maps a custom attribute code to its value rendered as text.
type Attributes map[string]string

// Get returns the value of code and whether the product carries it.
func (a Attributes) Get(code string) (string, bool) {
	v, ok := a[code]
	return v, ok
}

// Value returns the value of code, or "" when it is absent.
func (a Attributes) Value(code string) string {
	return a[code]
}

// Product is the catalog record of a SKU. The zero value is the empty
// record used when the lookup failed.
type Product struct {
	SKU         string
	Attributes  Attributes
	CategoryIDs []int64
}

// IsEmpty reports whether p carries nothing usable.
func (p *Product) IsEmpty() bool {
	return p == nil || (len(p.Attributes) == 0 && len(p.CategoryIDs) == 0)
}

// Attribute returns the value of code, or "" for an absent attribute or a
// nil product.
func (p *Product) Attribute(code string) string {
	if p == nil {
		return ""
	}
	return p.Attributes.Value(code)
}

// Category is a catalog category.
type Category struct {
	ID   int64
	Name string
}

// StatusLabel pairs an order status code with its display label.
type StatusLabel struct {
	Status string
	Label  string
}

// AttributeOption is one option of a select-type product attribute.
type AttributeOption struct {
	Value string
	Label string
}
