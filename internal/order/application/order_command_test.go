package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/messaging"
	"github.com/youngberry1/coindarks-sub001/internal/order/infrastructure/persistence/mysql"
	ratesdomain "github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
	"gorm.io/gorm"
)

type stubRates struct {
	quotes []ratesdomain.RateQuote
	err    error
	calls  int
}

func (s *stubRates) LoadRates(context.Context) ([]ratesdomain.RateQuote, error) {
	s.calls++
	return s.quotes, s.err
}

func quote(pair string, rate string, margins ...string) ratesdomain.RateQuote {
	tp := &ratesdomain.TradingPair{Pair: pair, Rate: decimal.RequireFromString(rate)}
	if len(margins) > 0 {
		tp.BuyMarginPercent = decimal.NewNullDecimal(decimal.RequireFromString(margins[0]))
	}
	if len(margins) > 1 {
		tp.SellMarginPercent = decimal.NewNullDecimal(decimal.RequireFromString(margins[1]))
	}
	return ratesdomain.NewRateQuote(tp, tp.FallbackRate(), false)
}

var approved = userdomain.Caller{UserID: "user-1", Role: userdomain.RoleUser, KycStatus: userdomain.KycApproved}

type fixture struct {
	db      *db.DB
	rates   *stubRates
	svc     *OrderCommandService
	wallets domain.WalletRepository
}

func newFixture(t *testing.T, quotes ...ratesdomain.RateQuote) *fixture {
	t.Helper()
	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate(&domain.Order{}, &domain.AdminWallet{}, &domain.Inventory{}, &messaging.OutboxMessage{}))

	rates := &stubRates{quotes: quotes}
	wallets := mysql.NewWalletRepository(database.DB)
	return &fixture{
		db:      database,
		rates:   rates,
		wallets: wallets,
		svc:     newService(rates, wallets, mysql.NewOrderRepository(database.DB)),
	}
}

func newService(rates RateLoader, wallets domain.WalletRepository, repo domain.OrderRepository) *OrderCommandService {
	bridger := ratesdomain.NewRateBridger(map[string]decimal.Decimal{
		"GHS": decimal.RequireFromString("15.5"),
		"NGN": decimal.NewFromInt(1600),
	})
	guard := domain.NewOrderGuard(map[string]decimal.Decimal{
		"GHS": decimal.NewFromInt(100),
		"NGN": decimal.NewFromInt(15000),
	}, wallets)
	return NewOrderCommandService(rates, bridger, guard, repo, domain.NewOrderNumberGenerator("ORD"), nil, OrderCommandConfig{CreateAttempts: 3})
}

func (f *fixture) addWallet(t *testing.T, currency, address string, active bool) {
	t.Helper()
	require.NoError(t, f.wallets.Create(context.Background(), &domain.AdminWallet{
		Chain: currency, Currency: currency, Address: address, IsActive: active,
	}))
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateOrderBridgedBuy(t *testing.T) {
	f := newFixture(t, quote("BTC-USD", "60000", "2"), quote("USDT-GHS", "15"))
	f.addWallet(t, "GHS", "MOMO-0241234567", true)

	res, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type:             "buy",
		Asset:            "btc",
		AmountInput:      decimal.RequireFromString("0.01"),
		InputType:        domain.InputCrypto,
		FiatCurrency:     "ghs",
		ReceivingAddress: "bc1qexample",
	})
	require.NoError(t, err)

	o := res.Order
	assert.True(t, o.FinalRate.Equal(decimal.NewFromInt(918000)), o.FinalRate.String())
	assert.Equal(t, "9180.00", o.AmountFiat.StringFixed(2))
	assert.Equal(t, "0.01000000", o.AmountCrypto.StringFixed(8))
	assert.Equal(t, "MOMO-0241234567", o.DepositAddress)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, "BTC", o.Asset)
	assert.Equal(t, "GHS", o.FiatCurrency)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z2-9]{6}$`, o.OrderNumber)

	stored, err := mysql.NewOrderRepository(f.db.DB).GetByNumber(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.True(t, stored.AmountFiat.Equal(decimal.NewFromInt(9180)))
}

func TestCreateOrderDirectSellFiatInput(t *testing.T) {
	usdtNgn := &ratesdomain.TradingPair{
		Pair:              "USDT-NGN",
		Rate:              decimal.NewFromInt(1400),
		ManualRate:        decimal.NewNullDecimal(decimal.NewFromInt(1500)),
		SellMarginPercent: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	}
	f := newFixture(t, ratesdomain.NewRateQuote(usdtNgn, usdtNgn.FallbackRate(), false))
	f.addWallet(t, "USDT", "TRC20-ADDR-1", true)
	f.addWallet(t, "USDT", "TRC20-ADDR-2", true)
	f.addWallet(t, "USDT", "TRC20-DISABLED", false)

	res, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type:             domain.OrderTypeSell,
		Asset:            "USDT",
		AmountInput:      decimal.NewFromInt(20000),
		InputType:        domain.InputFiat,
		FiatCurrency:     "NGN",
		ReceivingAddress: "0123456789 GTBank",
	})
	require.NoError(t, err)

	assert.True(t, res.Order.FinalRate.Equal(decimal.NewFromInt(1485)), res.Order.FinalRate.String())
	assert.Equal(t, "13.46801347", res.Amounts.Crypto.StringFixed(8))
	assert.Equal(t, "20000.00", res.Amounts.Fiat.StringFixed(2))
	assert.Equal(t, "TRC20-ADDR-1\nTRC20-ADDR-2", res.Order.DepositAddress)
}

func TestCreateOrderRequiresKycBeforeFeed(t *testing.T) {
	f := newFixture(t, quote("BTC-GHS", "900000"))
	f.addWallet(t, "GHS", "MOMO", true)

	caller := userdomain.Caller{UserID: "user-2", Role: userdomain.RoleUser, KycStatus: userdomain.KycPending}
	_, err := f.svc.CreateOrder(context.Background(), caller, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.NewFromInt(1),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "addr",
	})
	var kyc *domain.KycRequiredError
	require.ErrorAs(t, err, &kyc)
	assert.Zero(t, f.rates.calls)
	assert.Zero(t, f.count(t, &domain.Order{}))

	admin := userdomain.Caller{UserID: "admin", Role: userdomain.RoleAdmin, KycStatus: userdomain.KycPending}
	_, err = f.svc.CreateOrder(context.Background(), admin, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.NewFromInt(1),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "addr",
	})
	require.NoError(t, err)
}

func TestCreateOrderMinimumBoundary(t *testing.T) {
	f := newFixture(t, quote("USDT-GHS", "10"))
	f.addWallet(t, "USDT", "TRC20", true)

	sell := func(amount string) error {
		_, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
			Type: domain.OrderTypeSell, Asset: "USDT", AmountInput: decimal.RequireFromString(amount),
			InputType: domain.InputFiat, FiatCurrency: "GHS", ReceivingAddress: "momo",
		})
		return err
	}

	var minErr *domain.MinimumOrderError
	require.ErrorAs(t, sell("99.99"), &minErr)
	assert.Equal(t, "GHS", minErr.Currency)
	assert.Contains(t, minErr.Error(), "100")

	require.NoError(t, sell("100"))
	assert.Equal(t, int64(1), f.count(t, &domain.Order{}))
}

func TestCreateOrderBuyHasNoMinimum(t *testing.T) {
	f := newFixture(t, quote("USDT-GHS", "10"))
	f.addWallet(t, "GHS", "MOMO", true)

	_, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "USDT", AmountInput: decimal.NewFromInt(5),
		InputType: domain.InputFiat, FiatCurrency: "GHS", ReceivingAddress: "T-addr",
	})
	require.NoError(t, err)
}

func TestCreateOrderRejectsAmountsRoundedToZero(t *testing.T) {
	f := newFixture(t, quote("USDT-GHS", "15"))
	f.addWallet(t, "GHS", "MOMO", true)

	cases := []struct {
		name      string
		input     string
		inputType domain.InputType
	}{
		{"fiat below one cent", "0.004", domain.InputFiat},
		{"crypto worth less than one cent", "0.0002", domain.InputCrypto},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
				Type: domain.OrderTypeBuy, Asset: "USDT", AmountInput: decimal.RequireFromString(tc.input),
				InputType: tc.inputType, FiatCurrency: "GHS", ReceivingAddress: "T-addr",
			})
			var invalid *domain.InvalidOrderError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "Invalid amount: too small", err.Error())
		})
	}
	assert.Zero(t, f.count(t, &domain.Order{}))
	assert.Zero(t, f.count(t, &messaging.OutboxMessage{}))

	_, err := f.svc.Quote(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "USDT", AmountInput: decimal.RequireFromString("0.004"),
		InputType: domain.InputFiat, FiatCurrency: "GHS", ReceivingAddress: "T-addr",
	})
	var invalid *domain.InvalidOrderError
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateOrderWithoutWalletPersistsNothing(t *testing.T) {
	f := newFixture(t, quote("BTC-GHS", "900000"))
	f.addWallet(t, "GHS", "MOMO", false)

	_, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.RequireFromString("0.001"),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "bc1q",
	})
	var noDest *domain.NoDestinationError
	require.ErrorAs(t, err, &noDest)
	assert.Equal(t, "GHS", noDest.Currency)
	assert.Zero(t, f.count(t, &domain.Order{}))
	assert.Zero(t, f.count(t, &messaging.OutboxMessage{}))
}

func TestCreateOrderRateErrors(t *testing.T) {
	f := newFixture(t, quote("BTC-USD", "0"), quote("ETH-GHS", "0"))
	f.addWallet(t, "GHS", "MOMO", true)

	cmd := CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "SOL", AmountInput: decimal.NewFromInt(1),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "addr",
	}
	_, err := f.svc.CreateOrder(context.Background(), approved, cmd)
	var noRate *ratesdomain.NoRateError
	require.ErrorAs(t, err, &noRate)
	assert.Equal(t, "SOL", noRate.Asset)

	// BTC-USD 存在但为零，桥接后仍为零
	cmd.Asset = "BTC"
	_, err = f.svc.CreateOrder(context.Background(), approved, cmd)
	var unavailable *domain.RateUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "BTC", unavailable.Asset)
	assert.Equal(t, "GHS", unavailable.Currency)
	assert.Zero(t, f.count(t, &domain.Order{}))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	cases := []CreateOrderCommand{
		{Type: "HOLD", Asset: "BTC", AmountInput: decimal.NewFromInt(1), InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "a"},
		{Type: domain.OrderTypeBuy, Asset: "", AmountInput: decimal.NewFromInt(1), InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "a"},
		{Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.Zero, InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "a"},
		{Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.NewFromInt(1), InputType: "USD", FiatCurrency: "GHS", ReceivingAddress: "a"},
		{Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.NewFromInt(1), InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "  "},
	}
	for i, cmd := range cases {
		_, err := f.svc.CreateOrder(context.Background(), approved, cmd)
		var invalid *domain.InvalidOrderError
		assert.ErrorAs(t, err, &invalid, "case %d", i)
	}
	assert.Zero(t, f.rates.calls)
}

func TestCreateOrderWritesOutboxInSameTransaction(t *testing.T) {
	f := newFixture(t, quote("ETH-GHS", "40000"))
	f.addWallet(t, "GHS", "MOMO", true)

	res, err := f.svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "ETH", AmountInput: decimal.RequireFromString("0.5"),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "0xabc",
	})
	require.NoError(t, err)

	var msgs []messaging.OutboxMessage
	require.NoError(t, f.db.Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.EventOrderCreated, msgs[0].EventType)
	assert.Equal(t, res.Order.OrderNumber, msgs[0].Key)
	assert.Equal(t, messaging.StatusPending, msgs[0].Status)
	assert.Contains(t, msgs[0].Payload, `"amount_fiat":"20000.00"`)
}

type flakyRepo struct {
	domain.OrderRepository
	failures int
	err      error
	numbers  []string
}

func (r *flakyRepo) Create(ctx context.Context, o *domain.Order, e domain.OrderCreatedEvent) error {
	r.numbers = append(r.numbers, o.OrderNumber)
	if r.failures > 0 {
		r.failures--
		return r.err
	}
	return nil
}

func TestCreateOrderRetriesDuplicateNumber(t *testing.T) {
	f := newFixture(t, quote("BTC-GHS", "900000"))
	f.addWallet(t, "GHS", "MOMO", true)
	repo := &flakyRepo{failures: 2, err: fmt.Errorf("insert order: %w", gorm.ErrDuplicatedKey)}
	svc := newService(f.rates, f.wallets, repo)

	res, err := svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.RequireFromString("0.01"),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "bc1q",
	})
	require.NoError(t, err)
	require.Len(t, repo.numbers, 3)
	assert.Equal(t, repo.numbers[2], res.Order.OrderNumber)
}

func TestCreateOrderPersistenceFailure(t *testing.T) {
	f := newFixture(t, quote("BTC-GHS", "900000"))
	f.addWallet(t, "GHS", "MOMO", true)

	boom := errors.New("connection reset")
	repo := &flakyRepo{failures: 5, err: boom}
	svc := newService(f.rates, f.wallets, repo)

	_, err := svc.CreateOrder(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.RequireFromString("0.01"),
		InputType: domain.InputCrypto, FiatCurrency: "GHS", ReceivingAddress: "bc1q",
	})
	var creation *domain.OrderCreationError
	require.ErrorAs(t, err, &creation)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Failed to process order", err.Error())
	// 非唯一键错误不重试
	assert.Len(t, repo.numbers, 1)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	f := newFixture(t, quote("BTC-USD", "60000", "2"), quote("USDT-GHS", "15"))
	f.addWallet(t, "GHS", "MOMO", true)

	q, err := f.svc.Quote(context.Background(), approved, CreateOrderCommand{
		Type: domain.OrderTypeBuy, Asset: "BTC", AmountInput: decimal.RequireFromString("9180"),
		InputType: domain.InputFiat, FiatCurrency: "GHS", ReceivingAddress: "bc1q",
	})
	require.NoError(t, err)
	assert.True(t, q.Effective.Bridged)
	assert.Equal(t, "USDT-GHS", q.Effective.BridgePair)
	assert.Equal(t, "0.01000000", q.Amounts.Crypto.StringFixed(8))
	assert.Zero(t, f.count(t, &domain.Order{}))
}
