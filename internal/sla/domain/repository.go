package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, timer *SlaTimer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SlaTimer, error)
	FindOpen(ctx context.Context, db *gorm.DB, orderID snowflake.ID, timerType TimerType) (*SlaTimer, error)
	ListOpenByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]SlaTimer, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]SlaTimer, error)
	Update(ctx context.Context, db *gorm.DB, timer *SlaTimer) error

	// ListOverdue returns open, running, unbreached timers due before now.
	ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]SlaTimer, error)
	// MarkBreached flips is_breached only for an open, running, unbreached
	// timer whose due_at is before at.
	MarkBreached(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	InsertBreach(ctx context.Context, db *gorm.DB, breach *SlaBreach) (bool, error)
	ListBreaches(ctx context.Context, db *gorm.DB, filter ListBreachesFilter, page pagination.Params) ([]SlaBreach, int64, error)
	CountBreaches(ctx context.Context, db *gorm.DB) (int64, error)
}
