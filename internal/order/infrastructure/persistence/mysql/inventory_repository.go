package mysql

import (
	"context"
	"fmt"

	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type inventoryRepository struct{ db *gorm.DB }

// NewInventoryRepository 创建库存仓储
func NewInventoryRepository(db *gorm.DB) domain.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) List(ctx context.Context) ([]*domain.Inventory, error) {
	var items []*domain.Inventory
	if err := r.db.WithContext(ctx).Order("asset ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

func (r *inventoryRepository) Upsert(ctx context.Context, inv *domain.Inventory) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"buy_enabled", "sell_enabled", "updated_at"}),
	}).Create(inv).Error
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}
