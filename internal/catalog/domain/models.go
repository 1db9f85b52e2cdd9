package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OptionKind string

const (
	OptionKindText    OptionKind = "TEXT"
	OptionKindNumber  OptionKind = "NUMBER"
	OptionKindSelect  OptionKind = "SELECT"
	OptionKindBoolean OptionKind = "BOOLEAN"
)

type ImpactKind string

const (
	ImpactFixed   ImpactKind = "FIXED"
	ImpactPercent ImpactKind = "PERCENT"
)

// PricingImpact adjusts the unit price when a choice is selected. PERCENT
// amounts are applied to the service base price.
type PricingImpact struct {
	Kind   ImpactKind      `json:"kind" binding:"required,oneof=FIXED PERCENT"`
	Amount decimal.Decimal `json:"amount"`
}

type OptionChoice struct {
	Value         string         `json:"value" binding:"required"`
	Label         string         `json:"label"`
	PricingImpact *PricingImpact `json:"pricing_impact,omitempty"`
}

type ValidationRules struct {
	Required  bool             `json:"required"`
	Min       *decimal.Decimal `json:"min,omitempty"`
	Max       *decimal.Decimal `json:"max,omitempty"`
	MaxLength int              `json:"max_length,omitempty"`
}

// PrintService is a sellable service such as business cards or signage.
type PrintService struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"type:varchar(160);not null" json:"name"`
	Slug              string          `gorm:"type:varchar(160);not null;uniqueIndex" json:"slug"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	BasePrice         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_price"`
	DepositPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"deposit_percentage"`
	IsActive          bool            `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (PrintService) TableName() string { return "catalog_services" }

type ServiceOption struct {
	ID        snowflake.ID                        `gorm:"primaryKey" json:"id"`
	ServiceID snowflake.ID                        `gorm:"not null;uniqueIndex:ux_service_options_key,priority:1" json:"service_id"`
	Key       string                              `gorm:"type:varchar(64);not null;uniqueIndex:ux_service_options_key,priority:2" json:"key"`
	Label     string                              `gorm:"type:varchar(160);not null" json:"label"`
	Kind      OptionKind                          `gorm:"type:varchar(16);not null" json:"kind"`
	Choices   datatypes.JSONSlice[OptionChoice]   `json:"choices,omitempty"`
	Rules     datatypes.JSONType[ValidationRules] `json:"validation_rules"`
	Position  int                                 `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time                           `gorm:"not null" json:"created_at"`
}

func (ServiceOption) TableName() string { return "service_options" }

// Tier is a service-level package. RevisionsAllowed of zero means unlimited.
type Tier struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	ServiceID         snowflake.ID    `gorm:"not null;index" json:"service_id"`
	Name              string          `gorm:"type:varchar(120);not null" json:"name"`
	TurnaroundDays    int             `gorm:"not null" json:"turnaround_days"`
	RevisionsAllowed  int             `gorm:"not null;default:0" json:"revisions_allowed"`
	DepositPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"deposit_percentage"`
	RushFeePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"rush_fee_percentage"`
	IsActive          bool            `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (Tier) TableName() string { return "tiers" }

type TierDeliverable struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TierID      snowflake.ID `gorm:"not null;index" json:"tier_id"`
	Title       string       `gorm:"type:varchar(200);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (TierDeliverable) TableName() string { return "tier_deliverables" }
