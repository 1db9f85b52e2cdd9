package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, filter ListBookingsFilter, page pagination.Params) ([]Booking, int64, error)
	Update(ctx context.Context, db *gorm.DB, booking *Booking) error
	// CountActive counts bookings holding a slot on date in the given pool,
	// ignoring excludeID.
	CountActive(ctx context.Context, db *gorm.DB, date string, emergency bool, excludeID snowflake.ID) (int64, error)
	// ListActiveEmergency returns the quote's emergency bookings that still hold a slot.
	ListActiveEmergency(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]Booking, error)

	// LockDay serializes capacity decisions for one date.
	LockDay(ctx context.Context, db *gorm.DB, date string) error

	FindSetting(ctx context.Context, db *gorm.DB, weekday int) (*CapacitySetting, error)
	UpsertSetting(ctx context.Context, db *gorm.DB, setting *CapacitySetting) error
	FindOverride(ctx context.Context, db *gorm.DB, date string) (*CapacityOverride, error)
	UpsertOverride(ctx context.Context, db *gorm.DB, override *CapacityOverride) error

	FindBlackout(ctx context.Context, db *gorm.DB, date string) (*BlackoutDate, error)
	InsertBlackout(ctx context.Context, db *gorm.DB, blackout *BlackoutDate) error
	ListBlackouts(ctx context.Context, db *gorm.DB, from, to string) ([]BlackoutDate, error)
}
