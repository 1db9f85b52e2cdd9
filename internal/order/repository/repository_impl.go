package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/order/domain"
	"github.com/smallbiznis/printflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByQuoteID(ctx context.Context, db *gorm.DB, quoteID snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, "quote_id = ?", quoteID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Where(query, args...).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrdersFilter, page pagination.Params) ([]domain.Order, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.AssignedStaffID != "" {
		stmt = stmt.Where("assigned_staff_id = ?", filter.AssignedStaffID)
	}
	if filter.SLABreached != nil {
		stmt = stmt.Where("sla_breached = ?", *filter.SLABreached)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []domain.Order
	if err := page.Apply(stmt, domain.OrderSortable).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"status":                order.Status,
			"subtotal":              order.Subtotal,
			"emergency_fee":         order.EmergencyFee,
			"rush_fee":              order.RushFee,
			"tax_amount":            order.TaxAmount,
			"total_amount":          order.TotalAmount,
			"deposit_amount":        order.DepositAmount,
			"balance_due":           order.BalanceDue,
			"revisions_used":        order.RevisionsUsed,
			"assigned_staff_id":     order.AssignedStaffID,
			"due_at":                order.DueAt,
			"sla_breached":          order.SLABreached,
			"priority":              order.Priority,
			"inventory_consumed_at": order.InventoryConsumedAt,
			"completed_at":          order.CompletedAt,
			"cancelled_at":          order.CancelledAt,
			"updated_at":            order.UpdatedAt,
			"version":               expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	order.Version = expectedVersion + 1
	return true, nil
}

func (r *repo) SumNetCompletedPayments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (decimal.Decimal, error) {
	var paid decimal.Decimal
	row := db.WithContext(ctx).Raw(`
SELECT COALESCE(SUM(amount - refund_amount), 0)
FROM payments
WHERE order_id = ? AND status = 'COMPLETED'`, orderID).Row()
	if err := row.Scan(&paid); err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

func (r *repo) MarkSLABreached(ctx context.Context, db *gorm.DB, orderID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND sla_breached = ?", orderID, false).
		Updates(map[string]any{
			"sla_breached": true,
			"updated_at":   at,
			"version":      gorm.Expr("version + 1"),
		}).Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		Total  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *domain.OrderStatusHistory) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderStatusHistory, error) {
	var entries []domain.OrderStatusHistory
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
