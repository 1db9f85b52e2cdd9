package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

// CreateFromQuoteInput carries the finalized quote figures an order is built from.
type CreateFromQuoteInput struct {
	QuoteID           snowflake.ID
	CustomerID        string
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	ServiceID         snowflake.ID
	TierID            *snowflake.ID
	Quantity          int
	Subtotal          decimal.Decimal
	TaxRate           decimal.Decimal
	RushFee           decimal.Decimal
	EmergencyFee      decimal.Decimal
	DepositPercentage decimal.Decimal
	RevisionsAllowed  int
	TurnaroundDays    int
	Notes             string
}

type AdvanceStatusRequest struct {
	Status Status `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type RecordRevisionRequest struct {
	Override bool `json:"override"`
}

type AssignStaffRequest struct {
	StaffID *string `json:"staff_id" binding:"omitempty,max=64"`
}

type SetPriorityRequest struct {
	Priority int `json:"priority" binding:"required,gte=1,lte=5"`
}

type FeeKind string

const (
	FeeEmergency FeeKind = "EMERGENCY"
	FeeRush      FeeKind = "RUSH"
)

type ListOrdersRequest struct {
	pagination.Params
	Status          string `form:"status"`
	CustomerID      string `form:"customer_id"`
	AssignedStaffID string `form:"assigned_staff_id"`
	SLABreached     *bool  `form:"sla_breached"`
}

type ListOrdersFilter struct {
	Status          Status
	CustomerID      string
	AssignedStaffID string
	SLABreached     *bool
}

type ListOrdersResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

var OrderSortable = pagination.Sortable{
	"created_at":   "created_at",
	"due_at":       "due_at",
	"priority":     "priority",
	"total_amount": "total_amount",
	"balance_due":  "balance_due",
}

// BalanceListener is told about every balance recomputation inside the same transaction.
type BalanceListener interface {
	OnBalanceChangedTx(ctx context.Context, tx *gorm.DB, order Order) error
}

type Service interface {
	CreateFromQuoteTx(ctx context.Context, tx *gorm.DB, in CreateFromQuoteInput) (*Order, error)

	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdateTx loads and locks the order for the rest of tx.
	GetForUpdateTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) (ListOrdersResponse, error)
	History(ctx context.Context, id string) ([]OrderStatusHistory, error)

	AdvanceStatus(ctx context.Context, id string, req AdvanceStatusRequest) (Order, error)
	AdvanceStatusTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, target Status, reason string) (*Order, error)

	RecordRevision(ctx context.Context, id string, req RecordRevisionRequest) (Order, error)
	RecordRevisionTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, override bool) (*Order, error)

	RecomputeBalance(ctx context.Context, id string) (Order, error)
	RecomputeBalanceTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Order, error)
	AddFeeTx(ctx context.Context, tx *gorm.DB, id snowflake.ID, kind FeeKind, amount decimal.Decimal) (*Order, error)

	AssignStaff(ctx context.Context, id string, req AssignStaffRequest) (Order, error)
	SetPriority(ctx context.Context, id string, req SetPriorityRequest) (Order, error)
}

var (
	ErrOrderNotFound          = errs.New(errs.KindNotFound, "order_not_found", "order not found")
	ErrInvalidID              = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidStatus          = errs.Validation("status", "invalid_status", "unknown order status")
	ErrInvalidQuantity        = errs.Validation("quantity", "invalid_quantity", "quantity must be at least 1")
	ErrInvalidAmount          = errs.Validation("amount", "invalid_amount", "amount must not be negative")
	ErrInvalidPriority        = errs.Validation("priority", "invalid_priority", "priority must be between 1 and 5")
	ErrInvalidFeeKind         = errs.Validation("kind", "invalid_fee_kind", "unsupported fee kind")
	ErrInvalidSort            = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
	ErrOrderExists            = errs.New(errs.KindInvalidState, "order_exists", "quote already has an order")
	ErrOrderTerminal          = errs.New(errs.KindInvalidState, "order_terminal", "order is completed or cancelled")
	ErrBalanceOutstanding     = errs.New(errs.KindInvalidState, "balance_outstanding", "order has an outstanding balance")
	ErrRevisionLimitExceeded  = errs.New(errs.KindRevisionLimitExceeded, "revision_limit_exceeded", "revision limit reached for this tier")
	ErrRevisionOverrideDenied = errs.New(errs.KindForbidden, "revision_override_denied", "only admins may override the revision limit")
)
