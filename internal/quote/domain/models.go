package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusRequested       Status = "REQUESTED"
	StatusUnderReview     Status = "UNDER_REVIEW"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusFinalized       Status = "FINALIZED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
)

// OpenStatuses are the states in which a quote can still expire.
var OpenStatuses = []Status{StatusRequested, StatusUnderReview, StatusPendingApproval}

var allowedTransitions = map[Status][]Status{
	StatusRequested:       {StatusUnderReview, StatusRejected, StatusExpired},
	StatusUnderReview:     {StatusPendingApproval, StatusFinalized, StatusRejected, StatusExpired},
	StatusPendingApproval: {StatusFinalized, StatusRejected, StatusExpired},
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusUnderReview, StatusPendingApproval, StatusFinalized, StatusRejected, StatusExpired:
		return true
	}
	return false
}

func (s Status) Open() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Quote is a customer's request for pricing. Final figures are set only
// when the quote is finalized.
type Quote struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id"`
	CustomerID      string           `gorm:"type:varchar(64);not null;index" json:"customer_id"`
	CustomerName    string           `gorm:"type:varchar(160)" json:"customer_name,omitempty"`
	CustomerEmail   string           `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	CustomerPhone   string           `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	ServiceID       snowflake.ID     `gorm:"not null;index" json:"service_id"`
	TierID          *snowflake.ID    `json:"tier_id,omitempty"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	Status          Status           `gorm:"type:varchar(32);not null;index" json:"status"`
	EstimateMin     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"estimate_min"`
	EstimateMax     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"estimate_max"`
	FinalSubtotal   *decimal.Decimal `gorm:"type:numeric(12,2)" json:"final_subtotal,omitempty"`
	TaxRate         *decimal.Decimal `gorm:"type:numeric(6,4)" json:"tax_rate,omitempty"`
	TaxAmount       *decimal.Decimal `gorm:"type:numeric(12,2)" json:"tax_amount,omitempty"`
	TotalAmount     *decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount,omitempty"`
	Notes           string           `gorm:"type:text" json:"notes,omitempty"`
	AdminNotes      string           `gorm:"type:text" json:"admin_notes,omitempty"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	OrderID         *snowflake.ID    `json:"order_id,omitempty"`
	ExpiresAt       time.Time        `gorm:"not null;index" json:"expires_at"`
	FinalizedAt     *time.Time       `json:"finalized_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	ExpiredAt       *time.Time       `json:"expired_at,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`

	Answers []QuoteAnswer `gorm:"-" json:"answers,omitempty"`
}

func (Quote) TableName() string { return "quotes" }

// PastExpiry reports whether an open quote is past its expiry.
func (q Quote) PastExpiry(now time.Time) bool {
	return q.Status.Open() && now.After(q.ExpiresAt)
}

// QuoteAnswer is append-only; one row per option key.
type QuoteAnswer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	QuoteID   snowflake.ID `gorm:"not null;uniqueIndex:ux_quote_answers_key,priority:1" json:"quote_id"`
	Key       string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_quote_answers_key,priority:2" json:"key"`
	Label     string       `gorm:"type:varchar(160)" json:"label"`
	Value     string       `gorm:"type:text" json:"value"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (QuoteAnswer) TableName() string { return "quote_answers" }
