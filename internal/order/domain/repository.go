package domain

import (
	"context"
	"errors"
)

var (
	// ErrOrderNotFound 订单不存在或不属于调用方
	ErrOrderNotFound = errors.New("order not found")
	// ErrWalletNotFound 钱包不存在
	ErrWalletNotFound = errors.New("wallet not found")
)

// OrderFilter 订单列表过滤条件
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Limit  int
	Offset int
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 单事务写入订单与创建事件；订单号冲突时返回唯一键错误
	Create(ctx context.Context, order *Order, event OrderCreatedEvent) error
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)
}

// WalletRepository 平台钱包仓储接口
type WalletRepository interface {
	ListActiveByCurrency(ctx context.Context, currency string) ([]*AdminWallet, error)
	List(ctx context.Context) ([]*AdminWallet, error)
	Get(ctx context.Context, id uint) (*AdminWallet, error)
	Create(ctx context.Context, wallet *AdminWallet) error
	Save(ctx context.Context, wallet *AdminWallet) error
	Delete(ctx context.Context, id uint) error
}

// InventoryRepository 库存开关仓储接口
type InventoryRepository interface {
	List(ctx context.Context) ([]*Inventory, error)
	Upsert(ctx context.Context, inv *Inventory) error
}
