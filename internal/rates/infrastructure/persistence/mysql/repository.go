package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tradingPairRepository struct{ db *gorm.DB }

// NewTradingPairRepository 创建交易对仓储
func NewTradingPairRepository(db *gorm.DB) domain.TradingPairRepository {
	return &tradingPairRepository{db: db}
}

func (r *tradingPairRepository) List(ctx context.Context) ([]*domain.TradingPair, error) {
	var pairs []*domain.TradingPair
	if err := r.db.WithContext(ctx).Order("pair ASC").Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("list trading pairs: %w", err)
	}
	return pairs, nil
}

func (r *tradingPairRepository) Upsert(ctx context.Context, pair *domain.TradingPair) error {
	pair.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pair"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rate", "manual_rate", "margin_percent", "buy_margin_percent",
			"sell_margin_percent", "is_automated", "updated_at",
		}),
	}).Create(pair).Error
	if err != nil {
		return fmt.Errorf("upsert trading pair: %w", err)
	}
	return nil
}

func (r *tradingPairRepository) Delete(ctx context.Context, pair string) error {
	res := r.db.WithContext(ctx).Where("pair = ?", pair).Delete(&domain.TradingPair{})
	if res.Error != nil {
		return fmt.Errorf("delete trading pair: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPairNotFound
	}
	return nil
}
