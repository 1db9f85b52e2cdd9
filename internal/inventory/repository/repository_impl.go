package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/inventory/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.InventoryItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, filter domain.ListItemsFilter, page pagination.Params) ([]domain.InventoryItem, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.InventoryItem{})
	if filter.BelowReorder {
		stmt = stmt.Where("qty_on_hand <= reorder_point")
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.InventoryItem
	if err := page.Apply(stmt, domain.ItemSortable).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) ListReorderItems(ctx context.Context, db *gorm.DB) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := db.WithContext(ctx).
		Where("qty_on_hand <= reorder_point").
		Order("sku ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) RecomputeQtyOnHand(ctx context.Context, db *gorm.DB, itemID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(`
UPDATE inventory_items
SET qty_on_hand = (
	SELECT COALESCE(SUM(qty_change), 0)
	FROM inventory_transactions
	WHERE item_id = ?
), updated_at = ?
WHERE id = ?`, itemID, at, itemID).Error
}

func (r *repo) InsertRule(ctx context.Context, db *gorm.DB, rule *domain.MaterialConsumptionRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]domain.MaterialConsumptionRule, error) {
	var rules []domain.MaterialConsumptionRule
	err := db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("created_at ASC, id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *repo) ListMatchingRules(ctx context.Context, db *gorm.DB, serviceID snowflake.ID, tierID *snowflake.ID) ([]domain.MaterialConsumptionRule, error) {
	stmt := db.WithContext(ctx).Where("service_id = ?", serviceID)
	if tierID != nil {
		stmt = stmt.Where("tier_filter IS NULL OR tier_filter = ?", *tierID)
	} else {
		stmt = stmt.Where("tier_filter IS NULL")
	}

	var rules []domain.MaterialConsumptionRule
	err := stmt.Order("id ASC").Find(&rules).Error
	return rules, err
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.InventoryTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) InsertConsumption(ctx context.Context, db *gorm.DB, txn *domain.InventoryTransaction) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "rule_id"}},
			DoNothing: true,
		}).
		Create(txn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, filter domain.ListTransactionsFilter) ([]domain.InventoryTransaction, error) {
	stmt := db.WithContext(ctx).Model(&domain.InventoryTransaction{})
	if filter.ItemID != 0 {
		stmt = stmt.Where("item_id = ?", filter.ItemID)
	}
	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}

	var txns []domain.InventoryTransaction
	err := stmt.Order("created_at ASC, id ASC").Find(&txns).Error
	return txns, err
}
