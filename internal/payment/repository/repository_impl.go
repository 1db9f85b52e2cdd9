package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repo) UpdateFrom(ctx context.Context, db *gorm.DB, payment *domain.Payment, from domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status = ?", payment.ID, from).
		Updates(map[string]any{
			"status":         payment.Status,
			"refund_amount":  payment.RefundAmount,
			"failure_reason": payment.FailureReason,
			"completed_at":   payment.CompletedAt,
			"failed_at":      payment.FailedAt,
			"refunded_at":    payment.RefundedAt,
			"updated_at":     payment.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertRefund(ctx context.Context, db *gorm.DB, refund *domain.PaymentRefund) error {
	return db.WithContext(ctx).Create(refund).Error
}

func (r *repo) ListRefunds(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.PaymentRefund, error) {
	var refunds []domain.PaymentRefund
	err := db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&refunds).Error
	return refunds, err
}
