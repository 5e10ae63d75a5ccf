package sales

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Columns is the report header, in output order.
var Columns = []string{
	"MPN",
	"Nº Transação",
	"Data Transação",
	"Status",
	"Nome do Produto",
	"Receita do Produto",
	"Cidade",
	"Estado",
	"Valor total sem frete",
	"Valor total com frete",
	"E-mail cliente",
	"CPF Cliente",
	"Categorias",
	"Vendedora",
}

// moneyPlaces is the number of decimal places money is rendered with.
const moneyPlaces = 2

// Row is one report line: an order paired with one of its top-level items.
type Row struct {
	MPN             string          `json:"mpn"`
	TransactionID   string          `json:"transaction_id"`
	TransactionDate string          `json:"transaction_date"`
	Status          string          `json:"status"`
	ProductName     string          `json:"product_name"`
	ProductRevenue  decimal.Decimal `json:"product_revenue"`
	City            string          `json:"city"`
	Region          string          `json:"region"`
	NetTotal        decimal.Decimal `json:"net_total"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerTaxVat  string          `json:"customer_taxvat"`
	Categories      string          `json:"categories"`
	Saleswoman      string          `json:"saleswoman"`
}

// Values renders the row in Columns order.
func (r Row) Values() []string {
	return []string{
		r.MPN,
		r.TransactionID,
		r.TransactionDate,
		r.Status,
		r.ProductName,
		FormatMoney(r.ProductRevenue),
		r.City,
		r.Region,
		FormatMoney(r.NetTotal),
		FormatMoney(r.GrandTotal),
		r.CustomerEmail,
		r.CustomerTaxVat,
		r.Categories,
		r.Saleswoman,
	}
}

// FormatMoney renders an amount as a plain decimal number.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

// SortRows orders rows by transaction date. Rows with equal dates keep
// their relative order.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TransactionDate < rows[j].TransactionDate
	})
}
