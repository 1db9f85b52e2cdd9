package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertService(ctx context.Context, db *gorm.DB, svc *PrintService) error
	UpdateService(ctx context.Context, db *gorm.DB, svc *PrintService) error
	FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PrintService, error)
	ListServices(ctx context.Context, db *gorm.DB, active *bool, page pagination.Params) ([]PrintService, int64, error)

	InsertOption(ctx context.Context, db *gorm.DB, option *ServiceOption) error
	ListOptions(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]ServiceOption, error)

	InsertTier(ctx context.Context, db *gorm.DB, tier *Tier) error
	FindTierByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tier, error)
	ListTiers(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]Tier, error)

	InsertDeliverable(ctx context.Context, db *gorm.DB, deliverable *TierDeliverable) error
	ListDeliverables(ctx context.Context, db *gorm.DB, tierID snowflake.ID) ([]TierDeliverable, error)
}
