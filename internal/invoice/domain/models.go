// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
)

// Invoice is the single bill of an order. Amounts are a snapshot of the
// order and are refreshed every time its balance is recomputed.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID       snowflake.ID    `gorm:"not null;uniqueIndex" json:"order_id"`
	InvoiceNumber string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"invoice_number"`
	Status        InvoiceStatus   `gorm:"type:varchar(16);not null" json:"status"`
	Description   string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	RushFee       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"rush_fee"`
	EmergencyFee  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"emergency_fee"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_paid"`
	AmountDue     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount_due"`
	IssuedAt      time.Time       `gorm:"not null" json:"issued_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
