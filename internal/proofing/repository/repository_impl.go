package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/proofing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, proof *domain.ProofVersion) error {
	return db.WithContext(ctx).Create(proof).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProofVersion, error) {
	var proof domain.ProofVersion
	err := db.WithContext(ctx).Where("id = ?", id).First(&proof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *repo) FindAwaiting(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.ProofVersion, error) {
	var proof domain.ProofVersion
	err := db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, domain.AwaitingStatuses).
		Order("version_number DESC").
		First(&proof).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *repo) MaxVersion(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int, error) {
	var max int
	err := db.WithContext(ctx).
		Model(&domain.ProofVersion{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.ProofVersion, error) {
	var proofs []domain.ProofVersion
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("version_number ASC").
		Find(&proofs).Error
	return proofs, err
}

func (r *repo) UpdateFrom(ctx context.Context, db *gorm.DB, proof *domain.ProofVersion, from ...domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ProofVersion{}).
		Where("id = ? AND status IN ?", proof.ID, from).
		Updates(map[string]any{
			"status":           proof.Status,
			"customer_comment": proof.CustomerComment,
			"viewed_at":        proof.ViewedAt,
			"responded_at":     proof.RespondedAt,
			"updated_at":       proof.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
