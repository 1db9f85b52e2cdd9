package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionPurchase    TransactionType = "PURCHASE"
	TransactionReturn      TransactionType = "RETURN"
	TransactionAdjustment  TransactionType = "ADJUSTMENT"
	TransactionConsumption TransactionType = "CONSUMPTION"
)

// InventoryItem.QtyOnHand is a cache of the item's transaction sum and is
// only ever written by recomputing that sum.
type InventoryItem struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	SKU          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit         string          `gorm:"type:varchar(32);not null" json:"unit"`
	QtyOnHand    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"qty_on_hand"`
	ReorderPoint decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"reorder_point"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

func (i InventoryItem) NeedsReorder() bool {
	return i.QtyOnHand.LessThanOrEqual(i.ReorderPoint)
}

// MaterialConsumptionRule deducts QtyPerUnit of an item for every unit
// ordered of a service. A nil TierFilter matches every tier.
type MaterialConsumptionRule struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	ServiceID  snowflake.ID    `gorm:"not null;index" json:"service_id"`
	TierFilter *snowflake.ID   `json:"tier_filter,omitempty"`
	ItemID     snowflake.ID    `gorm:"not null;index" json:"item_id"`
	QtyPerUnit decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"qty_per_unit"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}

func (MaterialConsumptionRule) TableName() string { return "material_consumption_rules" }

type InventoryTransaction struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	ItemID    snowflake.ID    `gorm:"not null;index" json:"item_id"`
	OrderID   *snowflake.ID   `gorm:"uniqueIndex:ux_inventory_tx_order_rule,priority:1" json:"order_id,omitempty"`
	RuleID    *snowflake.ID   `gorm:"uniqueIndex:ux_inventory_tx_order_rule,priority:2" json:"rule_id,omitempty"`
	Type      TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	QtyChange decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"qty_change"`
	Note      string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time       `gorm:"not null;index" json:"created_at"`
}

func (InventoryTransaction) TableName() string { return "inventory_transactions" }
