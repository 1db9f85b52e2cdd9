package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByQuoteID(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListOrdersFilter, page pagination.Params) ([]Order, int64, error)
	// Update writes the order only if its version still matches expectedVersion
	// and bumps the version. It reports false when another writer got there first.
	Update(ctx context.Context, db *gorm.DB, order *Order, expectedVersion int64) (bool, error)
	// SumNetCompletedPayments totals amount minus refund_amount over completed payments.
	SumNetCompletedPayments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (decimal.Decimal, error)
	MarkSLABreached(ctx context.Context, db *gorm.DB, orderID snowflake.ID, at time.Time) error
	CountByStatus(ctx context.Context, db *gorm.DB) (map[Status]int64, error)

	InsertHistory(ctx context.Context, db *gorm.DB, entry *OrderStatusHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderStatusHistory, error)
}
