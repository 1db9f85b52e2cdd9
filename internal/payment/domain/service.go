package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      Method          `json:"method" binding:"required,oneof=CASH CARD BANK_TRANSFER MERCADOPAGO"`
	ProviderRef string          `json:"provider_ref" binding:"omitempty,max=128"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// GatewayStatus is the payment state reported by an external processor.
type GatewayStatus string

const (
	GatewayApproved  GatewayStatus = "approved"
	GatewayPending   GatewayStatus = "pending"
	GatewayRejected  GatewayStatus = "rejected"
	GatewayCancelled GatewayStatus = "cancelled"
)

// Gateway looks up a payment at the processor that took it.
type Gateway interface {
	PaymentStatus(ctx context.Context, providerRef string) (GatewayStatus, error)
}

type Service interface {
	RecordPayment(ctx context.Context, orderID string, req RecordPaymentRequest) (Payment, error)
	// RecordDepositTx books the deposit taken at quote finalization as completed.
	// A zero amount records nothing.
	RecordDepositTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, amount decimal.Decimal, method Method) (*Payment, error)
	ConfirmPayment(ctx context.Context, id string) (Payment, error)
	FailPayment(ctx context.Context, id string, req FailPaymentRequest) (Payment, error)
	RefundPayment(ctx context.Context, id string, req RefundPaymentRequest) (Payment, error)
	Get(ctx context.Context, id string) (Payment, error)
	List(ctx context.Context, orderID string) ([]Payment, error)
}

var (
	ErrPaymentNotFound      = errs.New(errs.KindNotFound, "payment_not_found", "payment not found")
	ErrInvalidID            = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidAmount        = errs.Validation("amount", "invalid_amount", "amount must be positive")
	ErrInvalidMethod        = errs.Validation("method", "invalid_method", "unsupported payment method")
	ErrAmountExceedsBalance = errs.Validation("amount", "amount_exceeds_balance", "amount exceeds the outstanding balance")
	ErrRefundExceedsPayment = errs.Validation("amount", "refund_exceeds_payment", "refund exceeds the refundable amount")
	ErrPaymentNotPending    = errs.New(errs.KindInvalidState, "payment_not_pending", "payment is not pending")
	ErrPaymentNotCompleted  = errs.New(errs.KindInvalidState, "payment_not_completed", "only completed payments can be refunded")
	ErrOrderClosed          = errs.New(errs.KindInvalidState, "order_closed", "order is completed or cancelled")
	ErrGatewayPending       = errs.New(errs.KindInvalidState, "gateway_pending", "payment is not yet approved by the processor")
	ErrGatewayUnavailable   = errs.New(errs.KindDependencyUnavailable, "gateway_unavailable", "payment processor unavailable")
)
