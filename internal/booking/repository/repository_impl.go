package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/booking/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBookingsFilter, page pagination.Params) ([]domain.Booking, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Booking{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.QuoteID != 0 {
		stmt = stmt.Where("quote_id = ?", filter.QuoteID)
	}
	if filter.DateFrom != "" {
		stmt = stmt.Where("date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		stmt = stmt.Where("date <= ?", filter.DateTo)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bookings []domain.Booking
	if err := page.Apply(stmt, domain.BookingSortable).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"date":                 booking.Date,
			"time_slot":            booking.TimeSlot,
			"emergency_fee_amount": booking.EmergencyFeeAmount,
			"fee_applied":          booking.FeeApplied,
			"status":               booking.Status,
			"reschedule_count":     booking.RescheduleCount,
			"cancel_reason":        booking.CancelReason,
			"confirmed_at":         booking.ConfirmedAt,
			"completed_at":         booking.CompletedAt,
			"cancelled_at":         booking.CancelledAt,
			"updated_at":           booking.UpdatedAt,
		}).Error
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, date string, emergency bool, excludeID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("date = ? AND is_emergency = ? AND status IN ? AND id <> ?", date, emergency, domain.ActiveStatuses, excludeID).
		Count(&count).Error
	return count, err
}

func (r *repo) ListActiveEmergency(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := db.WithContext(ctx).
		Where("quote_id = ? AND is_emergency = ? AND status IN ?", quoteID, true, domain.ActiveStatuses).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repo) LockDay(ctx context.Context, db *gorm.DB, date string) error {
	day := domain.BookingDay{Date: date}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&day).Error; err != nil {
		return err
	}
	return pkgdb.ForUpdate(db.WithContext(ctx)).Where("date = ?", date).First(&day).Error
}

func (r *repo) FindSetting(ctx context.Context, db *gorm.DB, weekday int) (*domain.CapacitySetting, error) {
	var setting domain.CapacitySetting
	err := db.WithContext(ctx).Where("weekday = ?", weekday).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repo) UpsertSetting(ctx context.Context, db *gorm.DB, setting *domain.CapacitySetting) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "weekday"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_slots", "emergency_slots_max", "emergency_fee_percentage", "updated_at"}),
	}).Create(setting).Error
}

func (r *repo) FindOverride(ctx context.Context, db *gorm.DB, date string) (*domain.CapacityOverride, error) {
	var override domain.CapacityOverride
	err := db.WithContext(ctx).Where("date = ?", date).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *repo) UpsertOverride(ctx context.Context, db *gorm.DB, override *domain.CapacityOverride) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"slots", "emergency_slots", "reason", "updated_at"}),
	}).Create(override).Error
}

func (r *repo) FindBlackout(ctx context.Context, db *gorm.DB, date string) (*domain.BlackoutDate, error) {
	var blackout domain.BlackoutDate
	err := db.WithContext(ctx).Where("date = ?", date).First(&blackout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &blackout, nil
}

func (r *repo) InsertBlackout(ctx context.Context, db *gorm.DB, blackout *domain.BlackoutDate) error {
	return db.WithContext(ctx).Create(blackout).Error
}

func (r *repo) ListBlackouts(ctx context.Context, db *gorm.DB, from, to string) ([]domain.BlackoutDate, error) {
	stmt := db.WithContext(ctx).Model(&domain.BlackoutDate{})
	if from != "" {
		stmt = stmt.Where("date >= ?", from)
	}
	if to != "" {
		stmt = stmt.Where("date <= ?", to)
	}
	var blackouts []domain.BlackoutDate
	err := stmt.Order("date ASC").Find(&blackouts).Error
	return blackouts, err
}
