package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
}
