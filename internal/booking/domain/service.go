package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
)

type CreateBookingRequest struct {
	QuoteID     string `json:"quote_id" binding:"required"`
	Date        string `json:"date" binding:"required"`
	TimeSlot    string `json:"time_slot"`
	IsEmergency bool   `json:"is_emergency"`
	Notes       string `json:"notes" binding:"omitempty,max=1000"`
}

type RescheduleBookingRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"time_slot"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type ListBookingsRequest struct {
	pagination.Params
	Status   string `form:"status"`
	QuoteID  string `form:"quote_id"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

type ListBookingsFilter struct {
	Status   Status
	QuoteID  snowflake.ID
	DateFrom string
	DateTo   string
}

type ListBookingsResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

var BookingSortable = pagination.Sortable{
	"created_at": "created_at",
	"date":       "date",
}

type UpsertCapacitySettingRequest struct {
	DefaultSlots           int             `json:"default_slots" binding:"gte=0"`
	EmergencySlotsMax      int             `json:"emergency_slots_max" binding:"gte=0"`
	EmergencyFeePercentage decimal.Decimal `json:"emergency_fee_percentage"`
}

type SetCapacityOverrideRequest struct {
	Slots          int    `json:"slots" binding:"gte=0"`
	EmergencySlots int    `json:"emergency_slots" binding:"gte=0"`
	Reason         string `json:"reason" binding:"omitempty,max=500"`
}

type AddBlackoutDateRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type ListBlackoutDatesRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (Booking, error)
	Reschedule(ctx context.Context, id string, req RescheduleBookingRequest) (Booking, error)
	Cancel(ctx context.Context, id string, req CancelBookingRequest) (Booking, error)
	Confirm(ctx context.Context, id string) (Booking, error)
	Complete(ctx context.Context, id string) (Booking, error)
	Get(ctx context.Context, id string) (Booking, error)
	List(ctx context.Context, req ListBookingsRequest) (ListBookingsResponse, error)
	Availability(ctx context.Context, date string) (Availability, error)

	UpsertCapacitySetting(ctx context.Context, weekday int, req UpsertCapacitySettingRequest) (CapacitySetting, error)
	SetCapacityOverride(ctx context.Context, date string, req SetCapacityOverrideRequest) (CapacityOverride, error)
	AddBlackoutDate(ctx context.Context, req AddBlackoutDateRequest) (BlackoutDate, error)
	ListBlackoutDates(ctx context.Context, req ListBlackoutDatesRequest) ([]BlackoutDate, error)
}

var (
	ErrBookingNotFound     = errs.New(errs.KindNotFound, "booking_not_found", "booking not found")
	ErrInvalidID           = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidQuoteID      = errs.Validation("quote_id", "invalid_quote_id", "invalid quote id")
	ErrInvalidDate         = errs.Validation("date", "invalid_date", "date must be YYYY-MM-DD")
	ErrInvalidTimeSlot     = errs.Validation("time_slot", "invalid_time_slot", "time slot must be HH:MM")
	ErrInvalidWeekday      = errs.Validation("weekday", "invalid_weekday", "weekday must be between 0 and 6")
	ErrInvalidSlots        = errs.Validation("default_slots", "invalid_slots", "slots must not be negative")
	ErrInvalidPercentage   = errs.Validation("emergency_fee_percentage", "invalid_percentage", "percentage must be between 0 and 100")
	ErrInvalidStatus       = errs.Validation("status", "invalid_status", "unknown booking status")
	ErrInvalidSort         = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
	ErrDateInPast          = errs.Validation("date", "date_in_past", "booking date is in the past")
	ErrBlackoutDate        = errs.New(errs.KindBlackoutDate, "blackout_date", "date is not available for bookings")
	ErrCapacityExceeded    = errs.New(errs.KindCapacityExceeded, "capacity_exceeded", "no slots left on this date")
	ErrEmergencyCapacity   = errs.New(errs.KindCapacityExceeded, "emergency_capacity_exceeded", "no emergency slots left on this date")
	ErrCancellationClosed  = errs.New(errs.KindCancellationWindowClosed, "cancellation_window_closed", "booking can no longer be cancelled")
	ErrBookingNotActive    = errs.New(errs.KindInvalidState, "booking_not_active", "booking is completed or cancelled")
	ErrQuoteNotBookable    = errs.New(errs.KindInvalidState, "quote_not_bookable", "quote is rejected or expired")
	ErrOrderNotBookable    = errs.New(errs.KindInvalidState, "order_not_bookable", "order is completed or cancelled")
	ErrDuplicateBlackout   = errs.Validation("date", "duplicate_blackout", "date is already blacked out")
)
