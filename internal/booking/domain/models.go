package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
)

// ActiveStatuses hold a slot. A rescheduled booking awaits confirmation
// for its new date.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusRescheduled}

func (s Status) Active() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	return s.Active() || s == StatusCompleted || s == StatusCancelled
}

// DateLayout is the wire and storage form of booking dates.
const DateLayout = "2006-01-02"

// TimeSlotLayout is the optional start time within a booking date.
const TimeSlotLayout = "15:04"

type Booking struct {
	ID                     snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuoteID                snowflake.ID    `gorm:"not null;index" json:"quote_id"`
	Date                   string          `gorm:"type:varchar(10);not null;index" json:"date"`
	TimeSlot               string          `gorm:"type:varchar(5)" json:"time_slot,omitempty"`
	IsEmergency            bool            `gorm:"not null" json:"is_emergency"`
	EmergencyFeePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"emergency_fee_percentage"`
	EmergencyFeeAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"emergency_fee_amount"`
	// FeeApplied is set once the emergency fee has been added to the order.
	FeeApplied      bool       `gorm:"not null" json:"fee_applied"`
	Status          Status     `gorm:"type:varchar(16);not null;index" json:"status"`
	RescheduleCount int        `gorm:"not null" json:"reschedule_count"`
	Notes           string     `gorm:"type:text" json:"notes,omitempty"`
	CancelReason    string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// StartsAt places the booking in loc; bookings without a slot start at midnight.
func (b Booking) StartsAt(loc *time.Location) (time.Time, error) {
	if b.TimeSlot == "" {
		return time.ParseInLocation(DateLayout, b.Date, loc)
	}
	return time.ParseInLocation(DateLayout+" "+TimeSlotLayout, b.Date+" "+b.TimeSlot, loc)
}

// CapacitySetting is the standing capacity for one weekday (0 = Sunday).
type CapacitySetting struct {
	Weekday                int             `gorm:"primaryKey;autoIncrement:false" json:"weekday"`
	DefaultSlots           int             `gorm:"not null" json:"default_slots"`
	EmergencySlotsMax      int             `gorm:"not null" json:"emergency_slots_max"`
	EmergencyFeePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"emergency_fee_percentage"`
	UpdatedAt              time.Time       `gorm:"not null" json:"updated_at"`
}

func (CapacitySetting) TableName() string { return "capacity_settings" }

// DefaultCapacity applies to weekdays nobody configured.
func DefaultCapacity(weekday time.Weekday) CapacitySetting {
	return CapacitySetting{
		Weekday:                int(weekday),
		DefaultSlots:           4,
		EmergencySlotsMax:      1,
		EmergencyFeePercentage: decimal.NewFromInt(20),
	}
}

// CapacityOverride replaces the weekday capacity for one date.
type CapacityOverride struct {
	Date           string    `gorm:"type:varchar(10);primaryKey" json:"date"`
	Slots          int       `gorm:"not null" json:"slots"`
	EmergencySlots int       `gorm:"not null" json:"emergency_slots"`
	Reason         string    `gorm:"type:text" json:"reason,omitempty"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (CapacityOverride) TableName() string { return "capacity_overrides" }

type BlackoutDate struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Date      string       `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"`
	Reason    string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (BlackoutDate) TableName() string { return "blackout_dates" }

// BookingDay is a lock row per date; bookings for one date serialize on it.
type BookingDay struct {
	Date string `gorm:"type:varchar(10);primaryKey"`
}

func (BookingDay) TableName() string { return "booking_days" }

// Availability is the remaining capacity of a date.
type Availability struct {
	Date                   string          `json:"date"`
	Blackout               bool            `json:"blackout"`
	BlackoutReason         string          `json:"blackout_reason,omitempty"`
	Overridden             bool            `json:"overridden"`
	Slots                  int             `json:"slots"`
	Booked                 int64           `json:"booked"`
	Remaining              int             `json:"remaining"`
	EmergencySlots         int             `json:"emergency_slots"`
	EmergencyBooked        int64           `json:"emergency_booked"`
	EmergencyRemaining     int             `json:"emergency_remaining"`
	EmergencyFeePercentage decimal.Decimal `json:"emergency_fee_percentage"`
}
