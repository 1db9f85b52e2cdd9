package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, proof *ProofVersion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ProofVersion, error)
	// FindAwaiting returns the order's proof still waiting on the customer, if any.
	FindAwaiting(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*ProofVersion, error)
	MaxVersion(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]ProofVersion, error)
	// UpdateFrom writes the proof only while its stored status is one of from.
	UpdateFrom(ctx context.Context, db *gorm.DB, proof *ProofVersion, from ...Status) (bool, error)
}
