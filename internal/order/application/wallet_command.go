package application

import (
	"context"
	"strings"
	"time"

	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// CreateWalletCommand 新增平台地址
type CreateWalletCommand struct {
	Chain    string
	Currency string
	Address  string
	Label    *string
	IsActive bool
}

// UpdateWalletCommand 更新平台地址，nil 字段不修改
type UpdateWalletCommand struct {
	Address  *string
	Label    *string
	IsActive *bool
}

// WalletService 平台钱包与库存开关管理
type WalletService struct {
	wallets   domain.WalletRepository
	inventory domain.InventoryRepository
}

// NewWalletService 创建管理服务
func NewWalletService(wallets domain.WalletRepository, inventory domain.InventoryRepository) *WalletService {
	return &WalletService{wallets: wallets, inventory: inventory}
}

// CreateWallet 新增地址
func (s *WalletService) CreateWallet(ctx context.Context, cmd CreateWalletCommand) (*domain.AdminWallet, error) {
	w := &domain.AdminWallet{
		Chain:     strings.TrimSpace(cmd.Chain),
		Currency:  domain.NormalizeCode(cmd.Currency),
		Address:   strings.TrimSpace(cmd.Address),
		Label:     cmd.Label,
		IsActive:  cmd.IsActive,
		CreatedAt: time.Now(),
	}
	if w.Currency == "" {
		return nil, &domain.InvalidOrderError{Field: "currency", Reason: "required"}
	}
	if w.Address == "" {
		return nil, &domain.InvalidOrderError{Field: "address", Reason: "required"}
	}
	if w.Chain == "" {
		w.Chain = w.Currency
	}
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Admin wallet created", "id", w.ID, "currency", w.Currency, "active", w.IsActive)
	return w, nil
}

// ListWallets 全部地址
func (s *WalletService) ListWallets(ctx context.Context) ([]*domain.AdminWallet, error) {
	return s.wallets.List(ctx)
}

// UpdateWallet 修改地址、标签或启用状态
func (s *WalletService) UpdateWallet(ctx context.Context, id uint, cmd UpdateWalletCommand) (*domain.AdminWallet, error) {
	w, err := s.wallets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Address != nil {
		addr := strings.TrimSpace(*cmd.Address)
		if addr == "" {
			return nil, &domain.InvalidOrderError{Field: "address", Reason: "required"}
		}
		w.Address = addr
	}
	if cmd.Label != nil {
		w.Label = cmd.Label
	}
	if cmd.IsActive != nil {
		w.IsActive = *cmd.IsActive
	}
	if err := s.wallets.Save(ctx, w); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Admin wallet updated", "id", w.ID, "currency", w.Currency, "active", w.IsActive)
	return w, nil
}

// DeleteWallet 删除地址
func (s *WalletService) DeleteWallet(ctx context.Context, id uint) error {
	if err := s.wallets.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "Admin wallet deleted", "id", id)
	return nil
}

// ListInventory 资产买卖开关
func (s *WalletService) ListInventory(ctx context.Context) ([]*domain.Inventory, error) {
	return s.inventory.List(ctx)
}

// SetInventory 设置资产买卖开关
func (s *WalletService) SetInventory(ctx context.Context, asset string, buyEnabled, sellEnabled bool) (*domain.Inventory, error) {
	inv := &domain.Inventory{
		Asset:       domain.NormalizeCode(asset),
		BuyEnabled:  buyEnabled,
		SellEnabled: sellEnabled,
		UpdatedAt:   time.Now(),
	}
	if inv.Asset == "" {
		return nil, &domain.InvalidOrderError{Field: "asset", Reason: "required"}
	}
	if err := s.inventory.Upsert(ctx, inv); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Inventory updated", "asset", inv.Asset, "buy", buyEnabled, "sell", sellEnabled)
	return inv, nil
}
