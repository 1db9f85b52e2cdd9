package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/events/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.LifecycleEvent) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListEventsFilter, page pagination.Params) ([]domain.LifecycleEvent, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.LifecycleEvent{})
	if filter.EventType != "" {
		stmt = stmt.Where("event_type = ?", filter.EventType)
	}
	if filter.AggregateType != "" {
		stmt = stmt.Where("aggregate_type = ?", filter.AggregateType)
	}
	if filter.AggregateID != 0 {
		stmt = stmt.Where("aggregate_id = ?", filter.AggregateID)
	}
	if filter.Since != nil {
		stmt = stmt.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []domain.LifecycleEvent
	if err := page.Apply(stmt, domain.SortableFields).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, limit int) ([]domain.LifecycleEvent, error) {
	var events []domain.LifecycleEvent
	err := pkgdb.ForUpdateSkipLocked(db.WithContext(ctx)).
		Where("published_at IS NULL AND failed_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *repo) MarkPublished(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE lifecycle_events SET published_at = ?, attempts = attempts + 1, last_error = ''
		 WHERE id = ? AND published_at IS NULL`,
		at, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) MarkAttemptFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string, failedAt *time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lifecycle_events SET attempts = attempts + 1, last_error = ?, failed_at = ?
		 WHERE id = ? AND published_at IS NULL`,
		lastError, failedAt, id,
	).Error
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.LifecycleEvent{}).
		Where("published_at IS NULL AND failed_at IS NULL").
		Count(&count).Error
	return count, err
}
