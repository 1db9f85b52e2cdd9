package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert ignores rows whose dedupe key already exists and reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, event *LifecycleEvent) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListEventsFilter, page pagination.Params) ([]LifecycleEvent, int64, error)
	ListPending(ctx context.Context, db *gorm.DB, limit int) ([]LifecycleEvent, error)
	MarkPublished(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkAttemptFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, lastError string, failedAt *time.Time) error
	CountPending(ctx context.Context, db *gorm.DB) (int64, error)
}
