package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *Quote) error
	InsertAnswers(ctx context.Context, db *gorm.DB, answers []QuoteAnswer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quote, error)
	ListAnswers(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]QuoteAnswer, error)
	List(ctx context.Context, db *gorm.DB, filter ListQuotesFilter, page pagination.Params) ([]Quote, int64, error)
	// UpdateFrom writes the quote only while its stored status is one of from.
	UpdateFrom(ctx context.Context, db *gorm.DB, quote *Quote, from ...Status) (bool, error)
	SetOrderID(ctx context.Context, db *gorm.DB, id, orderID snowflake.ID) error
	// ListStale returns open quotes whose expiry is before now.
	ListStale(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Quote, error)
	// Expire flips an open, past-expiry quote to EXPIRED and reports whether it did.
	Expire(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}
