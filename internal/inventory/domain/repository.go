package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertItem(ctx context.Context, db *gorm.DB, item *InventoryItem) error
	FindItemByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InventoryItem, error)
	ListItems(ctx context.Context, db *gorm.DB, filter ListItemsFilter, page pagination.Params) ([]InventoryItem, int64, error)
	ListReorderItems(ctx context.Context, db *gorm.DB) ([]InventoryItem, error)
	// RecomputeQtyOnHand rewrites qty_on_hand as the sum of the item's transactions.
	RecomputeQtyOnHand(ctx context.Context, db *gorm.DB, itemID snowflake.ID, at time.Time) error

	InsertRule(ctx context.Context, db *gorm.DB, rule *MaterialConsumptionRule) error
	ListRules(ctx context.Context, db *gorm.DB, serviceID snowflake.ID) ([]MaterialConsumptionRule, error)
	ListMatchingRules(ctx context.Context, db *gorm.DB, serviceID snowflake.ID, tierID *snowflake.ID) ([]MaterialConsumptionRule, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, txn *InventoryTransaction) error
	// InsertConsumption skips a rule already applied to the order and reports whether a row was written.
	InsertConsumption(ctx context.Context, db *gorm.DB, txn *InventoryTransaction) (bool, error)
	ListTransactions(ctx context.Context, db *gorm.DB, filter ListTransactionsFilter) ([]InventoryTransaction, error)
}
