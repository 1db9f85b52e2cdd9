package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertService(ctx context.Context, db *gorm.DB, svc *domain.PrintService) error {
	return db.WithContext(ctx).Create(svc).Error
}

func (r *repo) UpdateService(ctx context.Context, db *gorm.DB, svc *domain.PrintService) error {
	return db.WithContext(ctx).
		Model(&domain.PrintService{}).
		Where("id = ?", svc.ID).
		Updates(map[string]any{
			"name":               svc.Name,
			"description":        svc.Description,
			"base_price":         svc.BasePrice,
			"deposit_percentage": svc.DepositPercentage,
			"is_active":          svc.IsActive,
			"updated_at":         svc.UpdatedAt,
		}).Error
}

func (r *repo) FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PrintService, error) {
	var svc domain.PrintService
	err := db.WithContext(ctx).Where("id = ?", id).First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repo) ListServices(ctx context.Context, db *gorm.DB, active *bool, page pagination.Params) ([]domain.PrintService, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.PrintService{})
	if active != nil {
		stmt = stmt.Where("is_active = ?", *active)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.PrintService
	if err := page.Apply(stmt, domain.ServiceSortable).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) InsertOption(ctx context.Context, db *gorm.DB, option *domain.ServiceOption) error {
	return db.WithContext(ctx).Create(option).Error
}

func (r *repo) ListOptions(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]domain.ServiceOption, error) {
	var options []domain.ServiceOption
	err := db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("position ASC, id ASC").
		Find(&options).Error
	return options, err
}

func (r *repo) InsertTier(ctx context.Context, db *gorm.DB, tier *domain.Tier) error {
	return db.WithContext(ctx).Create(tier).Error
}

func (r *repo) FindTierByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tier, error) {
	var tier domain.Tier
	err := db.WithContext(ctx).Where("id = ?", id).First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repo) ListTiers(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]domain.Tier, error) {
	var tiers []domain.Tier
	err := db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("id ASC").
		Find(&tiers).Error
	return tiers, err
}

func (r *repo) InsertDeliverable(ctx context.Context, db *gorm.DB, deliverable *domain.TierDeliverable) error {
	return db.WithContext(ctx).Create(deliverable).Error
}

func (r *repo) ListDeliverables(ctx context.Context, db *gorm.DB, tierID snowflake.ID) ([]domain.TierDeliverable, error) {
	var items []domain.TierDeliverable
	err := db.WithContext(ctx).
		Where("tier_id = ?", tierID).
		Order("position ASC, id ASC").
		Find(&items).Error
	return items, err
}
