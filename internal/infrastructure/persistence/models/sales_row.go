package models

import (
	"time"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesRowModel is one stored report row. Rows of a window are replaced as a
// whole by every run that covers it.
type SalesRowModel struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	RunID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position        int             `gorm:"not null"`
	MPN             string          `gorm:"type:varchar(128)"`
	TransactionID   string          `gorm:"type:varchar(64);not null;index"`
	TransactionDate string          `gorm:"type:varchar(19);not null;index"`
	Status          string          `gorm:"type:varchar(128)"`
	ProductName     string          `gorm:"type:text"`
	ProductRevenue  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	City            string          `gorm:"type:varchar(128)"`
	Region          string          `gorm:"type:varchar(128)"`
	NetTotal        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	GrandTotal      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CustomerEmail   string          `gorm:"type:varchar(255)"`
	CustomerTaxVat  string          `gorm:"type:varchar(32)"`
	Categories      string          `gorm:"type:text"`
	Saleswoman      string          `gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (SalesRowModel) TableName() string {
	return "sales_report_rows"
}

// ToDomain converts the model to a report row
func (m *SalesRowModel) ToDomain() sales.Row {
	return sales.Row{
		MPN:             m.MPN,
		TransactionID:   m.TransactionID,
		TransactionDate: m.TransactionDate,
		Status:          m.Status,
		ProductName:     m.ProductName,
		ProductRevenue:  m.ProductRevenue,
		City:            m.City,
		Region:          m.Region,
		NetTotal:        m.NetTotal,
		GrandTotal:      m.GrandTotal,
		CustomerEmail:   m.CustomerEmail,
		CustomerTaxVat:  m.CustomerTaxVat,
		Categories:      m.Categories,
		Saleswoman:      m.Saleswoman,
	}
}

// SalesRowModelFromDomain creates a model for the row at position in run
func SalesRowModelFromDomain(runID uuid.UUID, position int, r sales.Row) *SalesRowModel {
	return &SalesRowModel{
		RunID:           runID,
		Position:        position,
		MPN:             r.MPN,
		TransactionID:   r.TransactionID,
		TransactionDate: r.TransactionDate,
		Status:          r.Status,
		ProductName:     r.ProductName,
		ProductRevenue:  r.ProductRevenue,
		City:            r.City,
		Region:          r.Region,
		NetTotal:        r.NetTotal,
		GrandTotal:      r.GrandTotal,
		CustomerEmail:   r.CustomerEmail,
		CustomerTaxVat:  r.CustomerTaxVat,
		Categories:      r.Categories,
		Saleswoman:      r.Saleswoman,
	}
}

// AllModels returns the models managed by AutoMigrate
func AllModels() []any {
	return []any{
		&SalesRowModel{},
	}
}
