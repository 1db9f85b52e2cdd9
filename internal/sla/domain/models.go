package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TimerType string

const (
	TimerFirstProof         TimerType = "FIRST_PROOF"
	TimerRevisionTurnaround TimerType = "REVISION_TURNAROUND"
	TimerProduction         TimerType = "PRODUCTION"
)

func (t TimerType) Valid() bool {
	switch t {
	case TimerFirstProof, TimerRevisionTurnaround, TimerProduction:
		return true
	default:
		return false
	}
}

// SlaTimer is a deadline for one order milestone. A paused timer is not
// scanned; resuming it pushes DueAt out by the time spent paused.
type SlaTimer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID `gorm:"not null;index:ix_sla_timers_order_type,priority:1" json:"order_id"`
	TimerType   TimerType    `gorm:"type:varchar(32);not null;index:ix_sla_timers_order_type,priority:2" json:"timer_type"`
	StartedAt   time.Time    `gorm:"not null" json:"started_at"`
	DueAt       time.Time    `gorm:"not null;index" json:"due_at"`
	PausedAt    *time.Time   `json:"paused_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	IsBreached  bool         `gorm:"not null" json:"is_breached"`
	BreachedAt  *time.Time   `json:"breached_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (SlaTimer) TableName() string { return "sla_timers" }

func (t SlaTimer) Open() bool { return t.CompletedAt == nil }

type SlaBreach struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	TimerID             snowflake.ID    `gorm:"not null;uniqueIndex" json:"timer_id"`
	OrderID             snowflake.ID    `gorm:"not null;index" json:"order_id"`
	TimerType           TimerType       `gorm:"type:varchar(32);not null" json:"timer_type"`
	DueAt               time.Time       `gorm:"not null" json:"due_at"`
	DetectedAt          time.Time       `gorm:"not null" json:"detected_at"`
	BreachDurationHours decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"breach_duration_hours"`
	EscalationLevel     int             `gorm:"not null" json:"escalation_level"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
}

func (SlaBreach) TableName() string { return "sla_breaches" }
