package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodMercadoPago  Method = "MERCADOPAGO"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBankTransfer, MethodMercadoPago:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

type Kind string

const (
	KindDeposit Kind = "DEPOSIT"
	KindPayment Kind = "PAYMENT"
)

// Payment counts toward the order balance only while COMPLETED, and then
// only for the part not refunded.
type Payment struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID       snowflake.ID    `gorm:"not null;index" json:"order_id"`
	Kind          Kind            `gorm:"type:varchar(16);not null" json:"kind"`
	Method        Method          `gorm:"type:varchar(32);not null" json:"method"`
	Status        Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	RefundAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"refund_amount"`
	ProviderRef   string          `gorm:"type:varchar(128)" json:"provider_ref,omitempty"`
	FailureReason string          `gorm:"type:text" json:"failure_reason,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Refundable is what is left to refund.
func (p Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}

type PaymentRefund struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	PaymentID snowflake.ID    `gorm:"not null;index" json:"payment_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Reason    string          `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (PaymentRefund) TableName() string { return "payment_refunds" }
