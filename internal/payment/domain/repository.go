package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Payment, error)
	// UpdateFrom writes the payment only while it is still in status from.
	UpdateFrom(ctx context.Context, db *gorm.DB, payment *Payment, from Status) (bool, error)
	InsertRefund(ctx context.Context, db *gorm.DB, refund *PaymentRefund) error
	ListRefunds(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]PaymentRefund, error)
}
