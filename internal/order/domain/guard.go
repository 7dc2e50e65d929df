package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
)

// OrderGuard 下单前的策略检查
type OrderGuard struct {
	minimums map[string]decimal.Decimal
	wallets  WalletRepository
}

// NewOrderGuard minimums 为法币代码到卖单下限的映射，未配置的货币无下限
func NewOrderGuard(minimums map[string]decimal.Decimal, wallets WalletRepository) *OrderGuard {
	m := make(map[string]decimal.Decimal, len(minimums))
	for k, v := range minimums {
		m[NormalizeCode(k)] = v
	}
	return &OrderGuard{minimums: m, wallets: wallets}
}

// CheckKyc KYC 通过或管理员方可交易
func (g *OrderGuard) CheckKyc(caller userdomain.Caller) error {
	if !caller.CanTrade() {
		return &KycRequiredError{}
	}
	return nil
}

// CheckMinimum 仅卖单受下限约束，边界值允许
func (g *OrderGuard) CheckMinimum(t OrderType, fiatCurrency string, amountFiat decimal.Decimal) error {
	if t != OrderTypeSell {
		return nil
	}
	ccy := NormalizeCode(fiatCurrency)
	floor, ok := g.minimums[ccy]
	if !ok {
		return nil
	}
	if amountFiat.LessThan(floor) {
		return &MinimumOrderError{Minimum: floor, Amount: amountFiat, Currency: ccy}
	}
	return nil
}

// SettlementCurrency 卖单收币，买单收法币
func SettlementCurrency(t OrderType, asset, fiatCurrency string) string {
	if t == OrderTypeSell {
		return NormalizeCode(asset)
	}
	return NormalizeCode(fiatCurrency)
}

// ResolveDestination 返回结算货币下全部启用地址，换行拼接
func (g *OrderGuard) ResolveDestination(ctx context.Context, t OrderType, asset, fiatCurrency string) (string, error) {
	ccy := SettlementCurrency(t, asset, fiatCurrency)
	wallets, err := g.wallets.ListActiveByCurrency(ctx, ccy)
	if err != nil {
		return "", err
	}
	if len(wallets) == 0 {
		return "", &NoDestinationError{Currency: ccy}
	}

	addrs := make([]string, 0, len(wallets))
	for _, w := range wallets {
		addrs = append(addrs, w.Address)
	}
	return strings.Join(addrs, "\n"), nil
}
