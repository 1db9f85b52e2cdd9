package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDepositPaid       Status = "DEPOSIT_PAID"
	StatusDesignInProgress  Status = "DESIGN_IN_PROGRESS"
	StatusWaitingApproval   Status = "WAITING_APPROVAL"
	StatusInProduction      Status = "IN_PRODUCTION"
	StatusQualityCheck      Status = "QUALITY_CHECK"
	StatusReadyForPickup    Status = "READY_FOR_PICKUP"
	StatusShipped           Status = "SHIPPED"
	StatusCompleted         Status = "COMPLETED"
	StatusCancelled         Status = "CANCELLED"
)

var allowedTransitions = map[Status][]Status{
	StatusDepositPaid:      {StatusDesignInProgress, StatusCancelled},
	StatusDesignInProgress: {StatusWaitingApproval, StatusCancelled},
	StatusWaitingApproval:  {StatusInProduction, StatusDesignInProgress, StatusCancelled},
	StatusInProduction:     {StatusQualityCheck, StatusCancelled},
	StatusQualityCheck:     {StatusReadyForPickup, StatusInProduction, StatusCancelled},
	StatusReadyForPickup:   {StatusShipped, StatusCompleted, StatusCancelled},
	StatusShipped:          {StatusCompleted, StatusCancelled},
}

// progress orders the forward path; used to tell whether an order has
// already reached production.
var progress = map[Status]int{
	StatusDepositPaid:      1,
	StatusDesignInProgress: 2,
	StatusWaitingApproval:  3,
	StatusInProduction:     4,
	StatusQualityCheck:     5,
	StatusReadyForPickup:   6,
	StatusShipped:          7,
	StatusCompleted:        8,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := progress[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ReachedProduction reports whether the order is at or past IN_PRODUCTION.
func (s Status) ReachedProduction() bool {
	return progress[s] >= progress[StatusInProduction]
}

func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is created once from a finalized quote and then lives on its own.
// BalanceDue is derived from the payments ledger and never set directly.
type Order struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuoteID             snowflake.ID    `gorm:"not null;uniqueIndex" json:"quote_id"`
	CustomerID          string          `gorm:"type:varchar(64);not null;index" json:"customer_id"`
	CustomerName        string          `gorm:"type:varchar(160)" json:"customer_name,omitempty"`
	CustomerEmail       string          `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	CustomerPhone       string          `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	ServiceID           snowflake.ID    `gorm:"not null;index" json:"service_id"`
	TierID              *snowflake.ID   `json:"tier_id,omitempty"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	Status              Status          `gorm:"type:varchar(32);not null;index" json:"status"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	EmergencyFee        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"emergency_fee"`
	RushFee             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"rush_fee"`
	TaxRate             decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"`
	TaxAmount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DepositPercentage   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"deposit_percentage"`
	DepositAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"deposit_amount"`
	BalanceDue          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_due"`
	RevisionsUsed       int             `gorm:"not null" json:"revisions_used"`
	RevisionsAllowed    int             `gorm:"not null" json:"revisions_allowed"`
	AssignedStaffID     *string         `gorm:"type:varchar(64);index" json:"assigned_staff_id,omitempty"`
	DueAt               *time.Time      `json:"due_at,omitempty"`
	SLABreached         bool            `gorm:"column:sla_breached;not null" json:"sla_breached"`
	Priority            int             `gorm:"not null" json:"priority"`
	Notes               string          `gorm:"type:text" json:"notes,omitempty"`
	InventoryConsumedAt *time.Time      `json:"inventory_consumed_at,omitempty"`
	Version             int64           `gorm:"not null" json:"version"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// RevisionLimitReached is false for unlimited tiers.
func (o Order) RevisionLimitReached() bool {
	return o.RevisionsAllowed > 0 && o.RevisionsUsed >= o.RevisionsAllowed
}

type OrderStatusHistory struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID    snowflake.ID `gorm:"not null;index" json:"order_id"`
	FromStatus Status       `gorm:"type:varchar(32)" json:"from_status,omitempty"`
	ToStatus   Status       `gorm:"type:varchar(32);not null" json:"to_status"`
	ActorRole  string       `gorm:"type:varchar(16)" json:"actor_role,omitempty"`
	ActorID    string       `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Reason     string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
