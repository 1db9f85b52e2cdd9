package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
)

type SubmitQuoteRequest struct {
	CustomerID    string                 `json:"customer_id" binding:"omitempty,max=64"`
	CustomerName  string                 `json:"customer_name" binding:"omitempty,max=160"`
	CustomerEmail string                 `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerPhone string                 `json:"customer_phone" binding:"omitempty,max=32"`
	ServiceID     string                 `json:"service_id" binding:"required"`
	TierID        *string                `json:"tier_id"`
	Quantity      int                    `json:"quantity" binding:"omitempty,gte=1"`
	Answers       []catalogdomain.Answer `json:"answers" binding:"omitempty,dive"`
	Notes         string                 `json:"notes" binding:"omitempty,max=2000"`
}

type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type FinalizeQuoteRequest struct {
	FinalSubtotal *decimal.Decimal `json:"final_subtotal" binding:"required"`
	// TaxRate is a fraction, 0.10 for ten percent.
	TaxRate       *decimal.Decimal     `json:"tax_rate" binding:"required"`
	AdminNotes    string               `json:"admin_notes" binding:"omitempty,max=2000"`
	Rush          bool                 `json:"rush"`
	DepositMethod paymentdomain.Method `json:"deposit_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER MERCADOPAGO"`
}

type ListQuotesRequest struct {
	pagination.Params
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
}

type ListQuotesFilter struct {
	Status     Status
	CustomerID string
}

type ListQuotesResponse struct {
	pagination.PageInfo
	Quotes []Quote `json:"quotes"`
}

var QuoteSortable = pagination.Sortable{
	"created_at":   "created_at",
	"expires_at":   "expires_at",
	"estimate_min": "estimate_min",
}

type Service interface {
	Submit(ctx context.Context, req SubmitQuoteRequest) (Quote, error)
	StartReview(ctx context.Context, id string) (Quote, error)
	SendForApproval(ctx context.Context, id string) (Quote, error)
	Reject(ctx context.Context, id string, req RejectQuoteRequest) (Quote, error)
	// Finalize flips the quote to FINALIZED and creates its order atomically.
	Finalize(ctx context.Context, id string, req FinalizeQuoteRequest) (orderdomain.Order, error)
	Get(ctx context.Context, id string) (Quote, error)
	List(ctx context.Context, req ListQuotesRequest) (ListQuotesResponse, error)
	// ExpireStale expires open quotes past their expiry and returns how many it expired.
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

var (
	ErrQuoteNotFound     = errs.New(errs.KindNotFound, "quote_not_found", "quote not found")
	ErrInvalidID         = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidServiceID  = errs.Validation("service_id", "invalid_service_id", "invalid service id")
	ErrInvalidTierID     = errs.Validation("tier_id", "invalid_tier_id", "invalid tier id")
	ErrInvalidCustomer   = errs.Validation("customer_id", "invalid_customer", "customer id is required")
	ErrInvalidQuantity   = errs.Validation("quantity", "invalid_quantity", "quantity must be at least 1")
	ErrSubtotalRequired  = errs.Validation("final_subtotal", "required", "final subtotal is required")
	ErrTaxRateRequired   = errs.Validation("tax_rate", "required", "tax rate is required")
	ErrInvalidSubtotal   = errs.Validation("final_subtotal", "invalid_subtotal", "final subtotal must not be negative")
	ErrInvalidTaxRate    = errs.Validation("tax_rate", "invalid_tax_rate", "tax rate must be a fraction between 0 and 1")
	ErrInvalidReason     = errs.Validation("reason", "invalid_reason", "reason is required")
	ErrInvalidStatus     = errs.Validation("status", "invalid_status", "unknown quote status")
	ErrInvalidSort       = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
	ErrServiceInactive   = errs.New(errs.KindInvalidState, "service_inactive", "service is not available for quotes")
	ErrTierInactive      = errs.New(errs.KindInvalidState, "tier_inactive", "tier is not available for quotes")
	ErrTierMismatch      = errs.Validation("tier_id", "tier_mismatch", "tier does not belong to the service")
	ErrQuoteClosed       = errs.New(errs.KindInvalidState, "quote_closed", "quote is no longer open")
	ErrQuoteExpired      = errs.New(errs.KindInvalidState, "quote_expired", "quote has expired")
)
