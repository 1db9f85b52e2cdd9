package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	SKU          string          `json:"sku" binding:"required,max=64"`
	Name         string          `json:"name" binding:"required,max=255"`
	Unit         string          `json:"unit" binding:"required,max=32"`
	OpeningQty   decimal.Decimal `json:"opening_qty"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
}

type RecordTransactionRequest struct {
	Type TransactionType `json:"type" binding:"required,oneof=PURCHASE RETURN ADJUSTMENT"`
	Qty  decimal.Decimal `json:"qty"`
	Note string          `json:"note"`
}

type CreateRuleRequest struct {
	ServiceID  string          `json:"service_id" binding:"required"`
	TierID     string          `json:"tier_id"`
	ItemID     string          `json:"item_id" binding:"required"`
	QtyPerUnit decimal.Decimal `json:"qty_per_unit"`
}

type ListItemsRequest struct {
	pagination.Params
	BelowReorder bool `form:"below_reorder"`
}

type ListItemsFilter struct {
	BelowReorder bool
}

type ListItemsResponse struct {
	pagination.PageInfo
	Items []InventoryItem `json:"items"`
}

type ListTransactionsFilter struct {
	ItemID  snowflake.ID
	OrderID snowflake.ID
}

var ItemSortable = pagination.Sortable{
	"created_at":  "created_at",
	"sku":         "sku",
	"qty_on_hand": "qty_on_hand",
}

// ConsumptionInput describes the order entering production.
type ConsumptionInput struct {
	OrderID   snowflake.ID
	ServiceID snowflake.ID
	TierID    *snowflake.ID
	Quantity  int
}

type Service interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (InventoryItem, error)
	GetItem(ctx context.Context, id string) (InventoryItem, error)
	ListItems(ctx context.Context, req ListItemsRequest) (ListItemsResponse, error)
	RecordTransaction(ctx context.Context, itemID string, req RecordTransactionRequest) (InventoryTransaction, error)
	ListTransactions(ctx context.Context, itemID string) ([]InventoryTransaction, error)

	CreateRule(ctx context.Context, req CreateRuleRequest) (MaterialConsumptionRule, error)
	ListRules(ctx context.Context, serviceID string) ([]MaterialConsumptionRule, error)

	// ApplyConsumptionTx deducts stock for every matching rule. Rules already
	// applied to the order are skipped, so calling it twice is harmless.
	ApplyConsumptionTx(ctx context.Context, tx *gorm.DB, in ConsumptionInput) ([]InventoryTransaction, error)
	ReorderAlertItems(ctx context.Context) ([]InventoryItem, error)
}

var (
	ErrItemNotFound      = errs.New(errs.KindNotFound, "inventory_item_not_found", "inventory item not found")
	ErrInvalidID         = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidSKU        = errs.Validation("sku", "invalid_sku", "sku is required")
	ErrDuplicateSKU      = errs.Validation("sku", "duplicate_sku", "sku already exists")
	ErrInvalidName       = errs.Validation("name", "invalid_name", "name is required")
	ErrInvalidUnit       = errs.Validation("unit", "invalid_unit", "unit is required")
	ErrInvalidQty        = errs.Validation("qty", "invalid_qty", "invalid quantity")
	ErrInvalidType       = errs.Validation("type", "invalid_transaction_type", "unsupported transaction type")
	ErrInvalidRule       = errs.Validation("qty_per_unit", "invalid_qty_per_unit", "qty per unit must be positive")
	ErrTierMismatch      = errs.Validation("tier_id", "tier_mismatch", "tier does not belong to service")
	ErrInsufficientStock = errs.New(errs.KindInvalidState, "insufficient_stock", "not enough stock on hand")
	ErrInvalidSort       = errs.Validation("sort_by", "invalid_sort", "unsupported sort")
)
