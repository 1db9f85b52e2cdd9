package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/quote/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quote *domain.Quote) error {
	return db.WithContext(ctx).Create(quote).Error
}

func (r *repo) InsertAnswers(ctx context.Context, db *gorm.DB, answers []domain.QuoteAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&answers).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quote, error) {
	var quote domain.Quote
	err := db.WithContext(ctx).Where("id = ?", id).First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repo) ListAnswers(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) ([]domain.QuoteAnswer, error) {
	var answers []domain.QuoteAnswer
	err := db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("id ASC").
		Find(&answers).Error
	return answers, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListQuotesFilter, page pagination.Params) ([]domain.Quote, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Quote{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var quotes []domain.Quote
	if err := page.Apply(stmt, domain.QuoteSortable).Find(&quotes).Error; err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (r *repo) UpdateFrom(ctx context.Context, db *gorm.DB, quote *domain.Quote, from ...domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ? AND status IN ?", quote.ID, from).
		Updates(map[string]any{
			"status":           quote.Status,
			"final_subtotal":   quote.FinalSubtotal,
			"tax_rate":         quote.TaxRate,
			"tax_amount":       quote.TaxAmount,
			"total_amount":     quote.TotalAmount,
			"admin_notes":      quote.AdminNotes,
			"rejection_reason": quote.RejectionReason,
			"finalized_at":     quote.FinalizedAt,
			"rejected_at":      quote.RejectedAt,
			"updated_at":       quote.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetOrderID(ctx context.Context, db *gorm.DB, id, orderID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ?", id).
		Update("order_id", orderID).Error
}

func (r *repo) ListStale(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Quote, error) {
	var quotes []domain.Quote
	err := db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", domain.OpenStatuses, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&quotes).Error
	return quotes, err
}

func (r *repo) Expire(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("id = ? AND status IN ? AND expires_at < ?", id, domain.OpenStatuses, now).
		Updates(map[string]any{
			"status":     domain.StatusExpired,
			"expired_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
