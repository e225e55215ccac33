package repository

import (
	"context"

	"distribuidora/internal/model"

	"gorm.io/gorm"
)

type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByProduct(ctx context.Context, productID uint, page Page) ([]model.StockMovement, int64, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID uint, page Page) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).Where("product_id = ?", productID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := page.scope(db).Order("created_at desc").Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}
