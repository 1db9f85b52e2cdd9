package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/sla/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, timer *domain.SlaTimer) error {
	return db.WithContext(ctx).Create(timer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SlaTimer, error) {
	var timer domain.SlaTimer
	err := db.WithContext(ctx).Where("id = ?", id).First(&timer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

func (r *repo) FindOpen(ctx context.Context, db *gorm.DB, orderID snowflake.ID, timerType domain.TimerType) (*domain.SlaTimer, error) {
	var timer domain.SlaTimer
	err := db.WithContext(ctx).
		Where("order_id = ? AND timer_type = ? AND completed_at IS NULL", orderID, timerType).
		Order("started_at DESC").
		First(&timer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

func (r *repo) ListOpenByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.SlaTimer, error) {
	var timers []domain.SlaTimer
	err := db.WithContext(ctx).
		Where("order_id = ? AND completed_at IS NULL", orderID).
		Order("started_at ASC").
		Find(&timers).Error
	return timers, err
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.SlaTimer, error) {
	var timers []domain.SlaTimer
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("started_at ASC").
		Find(&timers).Error
	return timers, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, timer *domain.SlaTimer) error {
	return db.WithContext(ctx).
		Model(&domain.SlaTimer{}).
		Where("id = ?", timer.ID).
		Updates(map[string]any{
			"due_at":       timer.DueAt,
			"paused_at":    timer.PausedAt,
			"completed_at": timer.CompletedAt,
			"updated_at":   timer.UpdatedAt,
		}).Error
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.SlaTimer, error) {
	var timers []domain.SlaTimer
	err := db.WithContext(ctx).
		Where("completed_at IS NULL AND paused_at IS NULL AND is_breached = ? AND due_at < ?", false, now).
		Order("due_at ASC").
		Limit(limit).
		Find(&timers).Error
	return timers, err
}

func (r *repo) MarkBreached(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.SlaTimer{}).
		Where("id = ? AND is_breached = ? AND completed_at IS NULL AND paused_at IS NULL AND due_at < ?", id, false, at).
		Updates(map[string]any{
			"is_breached": true,
			"breached_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertBreach(ctx context.Context, db *gorm.DB, breach *domain.SlaBreach) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "timer_id"}}, DoNothing: true}).
		Create(breach)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListBreaches(ctx context.Context, db *gorm.DB, filter domain.ListBreachesFilter, page pagination.Params) ([]domain.SlaBreach, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.SlaBreach{})
	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	if filter.TimerType != "" {
		stmt = stmt.Where("timer_type = ?", filter.TimerType)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.SlaBreach
	if err := page.Apply(stmt, domain.BreachSortable).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) CountBreaches(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.SlaBreach{}).Count(&total).Error
	return total, err
}
