package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusSent              Status = "SENT"
	StatusViewed            Status = "VIEWED"
	StatusApproved          Status = "APPROVED"
	StatusRevisionRequested Status = "REVISION_REQUESTED"
)

// AwaitingStatuses are the states in which a proof waits on the customer.
var AwaitingStatuses = []Status{StatusSent, StatusViewed}

func (s Status) Awaiting() bool {
	return s == StatusSent || s == StatusViewed
}

type Decision string

const (
	DecisionApprove         Decision = "APPROVE"
	DecisionRequestRevision Decision = "REQUEST_REVISION"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionRequestRevision
}

// ProofVersion is one proof sent to the customer. Versions of an order are
// numbered from 1 without gaps.
type ProofVersion struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID         snowflake.ID `gorm:"not null;uniqueIndex:ux_proof_versions_order_version,priority:1" json:"order_id"`
	VersionNumber   int          `gorm:"not null;uniqueIndex:ux_proof_versions_order_version,priority:2" json:"version_number"`
	FileRef         string       `gorm:"type:varchar(1024);not null" json:"file_ref"`
	FileName        string       `gorm:"type:varchar(255)" json:"file_name,omitempty"`
	ContentType     string       `gorm:"type:varchar(128)" json:"content_type,omitempty"`
	FileSize        int64        `json:"file_size,omitempty"`
	StaffID         string       `gorm:"type:varchar(64)" json:"staff_id,omitempty"`
	Note            string       `gorm:"type:text" json:"note,omitempty"`
	Status          Status       `gorm:"type:varchar(32);not null;index" json:"status"`
	CustomerComment string       `gorm:"type:text" json:"customer_comment,omitempty"`
	ViewedAt        *time.Time   `json:"viewed_at,omitempty"`
	RespondedAt     *time.Time   `json:"responded_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (ProofVersion) TableName() string { return "proof_versions" }
