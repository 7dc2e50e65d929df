package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/messaging"
	"github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/persistence/mysql"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
)

func seedOrders(t *testing.T, repo domain.OrderRepository) {
	t.Helper()
	base := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		number string
		user   string
		status domain.OrderStatus
	}{
		{"ORD-20240131-AAAAAA", "user-1", domain.OrderStatusPending},
		{"ORD-20240131-BBBBBB", "user-1", domain.OrderStatusCompleted},
		{"ORD-20240131-CCCCCC", "user-2", domain.OrderStatusPending},
	}
	for i, r := range rows {
		o := &domain.Order{
			ID:               r.number,
			OrderNumber:      r.number,
			UserID:           r.user,
			Type:             domain.OrderTypeBuy,
			Asset:            "BTC",
			FinalRate:        decimal.NewFromInt(900000),
			AmountCrypto:     decimal.RequireFromString("0.01"),
			AmountFiat:       decimal.NewFromInt(9000),
			FiatCurrency:     "GHS",
			ReceivingAddress: "bc1q",
			DepositAddress:   "MOMO",
			Status:           r.status,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), o, domain.NewOrderCreatedEvent(o)))
	}
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	repo := mysql.NewOrderRepository(f.db.DB)
	seedOrders(t, repo)
	svc := NewOrderQueryService(repo)
	ctx := context.Background()

	owner := userdomain.Caller{UserID: "user-1", Role: userdomain.RoleUser}
	other := userdomain.Caller{UserID: "user-2", Role: userdomain.RoleUser}
	admin := userdomain.Caller{UserID: "admin", Role: userdomain.RoleAdmin}

	o, err := svc.GetOrder(ctx, owner, "ORD-20240131-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "user-1", o.UserID)

	_, err = svc.GetOrder(ctx, other, "ORD-20240131-AAAAAA")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrder(ctx, admin, "ORD-20240131-AAAAAA")
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, owner, "ORD-MISSING")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	page, err := svc.ListOrders(ctx, owner, ListOrdersQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "ORD-20240131-BBBBBB", page.Orders[0].OrderNumber)
	assert.Equal(t, defaultLimit, page.Limit)

	page, err = svc.ListOrders(ctx, owner, ListOrdersQuery{Status: domain.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = svc.ListOrders(ctx, admin, ListOrdersQuery{All: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "ORD-20240131-BBBBBB", page.Orders[0].OrderNumber)

	// 非管理员的 All 被忽略
	page, err = svc.ListOrders(ctx, other, ListOrdersQuery{All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.ListOrders(ctx, owner, ListOrdersQuery{Status: "LOST"})
	var invalid *domain.InvalidOrderError
	assert.ErrorAs(t, err, &invalid)

	var outbox int64
	require.NoError(t, f.db.Model(&messaging.OutboxMessage{}).Count(&outbox).Error)
	assert.Equal(t, int64(3), outbox)
}

func TestWalletService(t *testing.T) {
	f := newFixture(t)
	svc := NewWalletService(f.wallets, mysql.NewInventoryRepository(f.db.DB))
	ctx := context.Background()

	label := "MTN MoMo"
	w, err := svc.CreateWallet(ctx, CreateWalletCommand{Currency: "ghs", Address: " 0241234567 ", Label: &label, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "GHS", w.Currency)
	assert.Equal(t, "GHS", w.Chain)
	assert.Equal(t, "0241234567", w.Address)
	assert.NotZero(t, w.ID)

	_, err = svc.CreateWallet(ctx, CreateWalletCommand{Currency: "GHS"})
	var invalid *domain.InvalidOrderError
	assert.ErrorAs(t, err, &invalid)

	inactive := false
	w, err = svc.UpdateWallet(ctx, w.ID, UpdateWalletCommand{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, w.IsActive)

	active, err := f.wallets.ListActiveByCurrency(ctx, "GHS")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.UpdateWallet(ctx, 999, UpdateWalletCommand{IsActive: &inactive})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	all, err := svc.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.DeleteWallet(ctx, w.ID))
	assert.ErrorIs(t, svc.DeleteWallet(ctx, w.ID), domain.ErrWalletNotFound)
}

func TestInventoryUpsert(t *testing.T) {
	f := newFixture(t)
	svc := NewWalletService(f.wallets, mysql.NewInventoryRepository(f.db.DB))
	ctx := context.Background()

	_, err := svc.SetInventory(ctx, "btc", true, true)
	require.NoError(t, err)
	_, err = svc.SetInventory(ctx, "BTC", true, false)
	require.NoError(t, err)
	_, err = svc.SetInventory(ctx, "eth", false, true)
	require.NoError(t, err)

	items, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "BTC", items[0].Asset)
	assert.True(t, items[0].BuyEnabled)
	assert.False(t, items[0].SellEnabled)
	assert.Equal(t, "ETH", items[1].Asset)
	assert.False(t, items[1].BuyEnabled)
}
