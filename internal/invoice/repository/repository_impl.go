package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where("order_id = ?", orderID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"status":        invoice.Status,
			"subtotal":      invoice.Subtotal,
			"rush_fee":      invoice.RushFee,
			"emergency_fee": invoice.EmergencyFee,
			"tax_amount":    invoice.TaxAmount,
			"total_amount":  invoice.TotalAmount,
			"amount_paid":   invoice.AmountPaid,
			"amount_due":    invoice.AmountDue,
			"paid_at":       invoice.PaidAt,
			"updated_at":    invoice.UpdatedAt,
		}).Error
}
