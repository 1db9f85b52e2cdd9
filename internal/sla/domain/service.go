package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

type ListBreachesRequest struct {
	pagination.Params
	OrderID   string `form:"order_id"`
	TimerType string `form:"timer_type"`
}

type ListBreachesFilter struct {
	OrderID   snowflake.ID
	TimerType TimerType
}

type ListBreachesResponse struct {
	pagination.PageInfo
	Breaches []SlaBreach `json:"breaches"`
}

var BreachSortable = pagination.Sortable{
	"detected_at":           "detected_at",
	"breach_duration_hours": "breach_duration_hours",
}

// BreachListener reacts to a newly recorded breach inside the scan transaction.
type BreachListener interface {
	OnBreachTx(ctx context.Context, tx *gorm.DB, breach SlaBreach) error
}

type Service interface {
	// StartTimerTx returns the existing open timer of the same type instead of starting a second one.
	StartTimerTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType TimerType, dueAt time.Time) (*SlaTimer, error)
	CompleteTimer(ctx context.Context, timerID string) (SlaTimer, error)
	CompleteTimerTx(ctx context.Context, tx *gorm.DB, timerID snowflake.ID) (*SlaTimer, error)
	// CompleteByTypeTx completes the open timer of timerType if there is one.
	CompleteByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType TimerType) error
	CompleteAllOpenTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) error
	PauseByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType TimerType) error
	// ResumeByTypeTx reports whether a paused timer was found and resumed.
	ResumeByTypeTx(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, timerType TimerType) (bool, error)

	ScanForBreaches(ctx context.Context, now time.Time, limit int) (int, error)
	ListTimers(ctx context.Context, orderID string) ([]SlaTimer, error)
	ListBreaches(ctx context.Context, req ListBreachesRequest) (ListBreachesResponse, error)
}

var (
	ErrTimerNotFound     = errs.New(errs.KindNotFound, "sla_timer_not_found", "sla timer not found")
	ErrInvalidID         = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidTimerType  = errs.Validation("timer_type", "invalid_timer_type", "unknown sla timer type")
	ErrInvalidDueAt      = errs.Validation("due_at", "invalid_due_at", "due date is required")
	ErrTimerCompleted    = errs.New(errs.KindInvalidState, "sla_timer_completed", "sla timer already completed")
	ErrInvalidSort       = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
	ErrInvalidOrderID    = errs.Validation("order_id", "invalid_order_id", "invalid order id")
)
