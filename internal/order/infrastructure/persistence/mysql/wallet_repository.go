package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"gorm.io/gorm"
)

type walletRepository struct{ db *gorm.DB }

// NewWalletRepository 创建平台钱包仓储
func NewWalletRepository(db *gorm.DB) domain.WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) ListActiveByCurrency(ctx context.Context, currency string) ([]*domain.AdminWallet, error) {
	var wallets []*domain.AdminWallet
	err := r.db.WithContext(ctx).
		Where("currency = ? AND is_active = ?", currency, true).
		Order("created_at ASC").Order("id ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) List(ctx context.Context) ([]*domain.AdminWallet, error) {
	var wallets []*domain.AdminWallet
	if err := r.db.WithContext(ctx).Order("currency ASC").Order("id ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) Get(ctx context.Context, id uint) (*domain.AdminWallet, error) {
	var w domain.AdminWallet
	err := r.db.WithContext(ctx).First(&w, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *walletRepository) Create(ctx context.Context, wallet *domain.AdminWallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) Save(ctx context.Context, wallet *domain.AdminWallet) error {
	if err := r.db.WithContext(ctx).Save(wallet).Error; err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.AdminWallet{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
