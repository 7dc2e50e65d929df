// Package application 订单应用服务：下单流水线、报价预览与后台管理
package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	ratesdomain "github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/metrics"
	"github.com/youngberry1/coindarks-sub001/pkg/utils"
)

// RateLoader 提供当前全部交易对报价，由 rates 的 RateResolver 实现
type RateLoader interface {
	LoadRates(ctx context.Context) ([]ratesdomain.RateQuote, error)
}

// CreateOrderCommand 下单请求
type CreateOrderCommand struct {
	Type             domain.OrderType
	Asset            string
	AmountInput      decimal.Decimal
	InputType        domain.InputType
	FiatCurrency     string
	ReceivingAddress string
}

// Normalize 统一大小写与空白
func (c *CreateOrderCommand) Normalize() {
	c.Type = domain.OrderType(domain.NormalizeCode(string(c.Type)))
	c.Asset = domain.NormalizeCode(c.Asset)
	c.InputType = domain.InputType(domain.NormalizeCode(string(c.InputType)))
	c.FiatCurrency = domain.NormalizeCode(c.FiatCurrency)
	c.ReceivingAddress = strings.TrimSpace(c.ReceivingAddress)
}

// Validate 校验请求字段
func (c *CreateOrderCommand) Validate() error {
	if c.Type != domain.OrderTypeBuy && c.Type != domain.OrderTypeSell {
		return &domain.InvalidOrderError{Field: "type", Reason: "must be BUY or SELL"}
	}
	if c.Asset == "" {
		return &domain.InvalidOrderError{Field: "asset", Reason: "required"}
	}
	if c.FiatCurrency == "" {
		return &domain.InvalidOrderError{Field: "fiatCurrency", Reason: "required"}
	}
	if c.InputType != domain.InputCrypto && c.InputType != domain.InputFiat {
		return &domain.InvalidOrderError{Field: "inputType", Reason: "must be CRYPTO or FIAT"}
	}
	if !c.AmountInput.IsPositive() {
		return &domain.InvalidOrderError{Field: "amount", Reason: "must be positive"}
	}
	if c.ReceivingAddress == "" {
		return &domain.InvalidOrderError{Field: "receivingAddress", Reason: "required"}
	}
	return nil
}

// Quotation 报价预览结果
type Quotation struct {
	Asset          string
	FiatCurrency   string
	Type           domain.OrderType
	Effective      ratesdomain.EffectiveRate
	FinalRate      decimal.Decimal
	Amounts        domain.Amounts
	DepositAddress string
}

// CreatedOrder 下单结果
type CreatedOrder struct {
	Order   *domain.Order
	Amounts domain.Amounts
}

// OrderCommandConfig 下单重试参数
type OrderCommandConfig struct {
	CreateAttempts int
	RetryBackoff   time.Duration
}

// OrderCommandService 下单流水线
type OrderCommandService struct {
	rates   RateLoader
	bridger *ratesdomain.RateBridger
	guard   *domain.OrderGuard
	repo    domain.OrderRepository
	numbers *domain.OrderNumberGenerator
	metrics *metrics.Metrics
	cfg     OrderCommandConfig
	now     func() time.Time
}

// NewOrderCommandService 创建下单服务
func NewOrderCommandService(
	rates RateLoader,
	bridger *ratesdomain.RateBridger,
	guard *domain.OrderGuard,
	repo domain.OrderRepository,
	numbers *domain.OrderNumberGenerator,
	m *metrics.Metrics,
	cfg OrderCommandConfig,
) *OrderCommandService {
	if cfg.CreateAttempts <= 0 {
		cfg.CreateAttempts = 3
	}
	return &OrderCommandService{
		rates:   rates,
		bridger: bridger,
		guard:   guard,
		repo:    repo,
		numbers: numbers,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Quote 执行与下单相同的检查与计算，不落库
func (s *OrderCommandService) Quote(ctx context.Context, caller userdomain.Caller, cmd CreateOrderCommand) (*Quotation, error) {
	return s.price(ctx, caller, &cmd)
}

// CreateOrder 校验、定价、检查下限与收款地址后落库，订单号冲突时重新生成
func (s *OrderCommandService) CreateOrder(ctx context.Context, caller userdomain.Caller, cmd CreateOrderCommand) (*CreatedOrder, error) {
	q, err := s.price(ctx, caller, &cmd)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	attempt := 0
	err = utils.Retry(ctx, s.cfg.CreateAttempts, s.cfg.RetryBackoff, db.IsDuplicateKey, func() error {
		attempt++
		now := s.now()
		order = &domain.Order{
			ID:               uuid.New().String(),
			OrderNumber:      s.numbers.Generate(),
			UserID:           caller.UserID,
			Type:             cmd.Type,
			Asset:            cmd.Asset,
			FinalRate:        q.FinalRate,
			AmountCrypto:     q.Amounts.Crypto,
			AmountFiat:       q.Amounts.Fiat,
			FiatCurrency:     cmd.FiatCurrency,
			ReceivingAddress: cmd.ReceivingAddress,
			DepositAddress:   q.DepositAddress,
			Status:           domain.OrderStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err := s.repo.Create(ctx, order, domain.NewOrderCreatedEvent(order))
		if err != nil && db.IsDuplicateKey(err) {
			logger.Warn(ctx, "Order number collision, regenerating", "order_number", order.OrderNumber, "attempt", attempt)
		}
		return err
	})
	if err != nil {
		s.reject(ctx, "persistence", err)
		return nil, &domain.OrderCreationError{Cause: err}
	}

	s.metrics.RecordOrderCreated(string(order.Type))
	logger.Info(ctx, "Order created",
		"order_number", order.OrderNumber,
		"user_id", order.UserID,
		"type", order.Type,
		"asset", order.Asset,
		"fiat_currency", order.FiatCurrency,
		"amount_crypto", order.AmountCrypto.String(),
		"amount_fiat", order.AmountFiat.String(),
		"bridged", q.Effective.Bridged,
	)
	return &CreatedOrder{Order: order, Amounts: q.Amounts}, nil
}

// price 下单前半段：KYC 检查先于任何行情请求
func (s *OrderCommandService) price(ctx context.Context, caller userdomain.Caller, cmd *CreateOrderCommand) (*Quotation, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		s.reject(ctx, "invalid", err)
		return nil, err
	}
	if err := s.guard.CheckKyc(caller); err != nil {
		s.reject(ctx, "kyc_required", err)
		return nil, err
	}

	quotes, err := s.rates.LoadRates(ctx)
	if err != nil {
		s.reject(ctx, "persistence", err)
		return nil, &domain.OrderCreationError{Cause: err}
	}

	side := cmd.Type.Side()
	effective, err := s.bridger.Resolve(cmd.Asset, cmd.FiatCurrency, side, quotes)
	if err != nil {
		s.reject(ctx, "no_rate", err)
		return nil, err
	}
	finalRate := ratesdomain.ApplyMargin(effective.Rate, effective.MarginPercent, side)

	amounts, err := domain.ComputeAmounts(cmd.AmountInput, cmd.InputType, finalRate)
	if err != nil {
		var unavailable *domain.RateUnavailableError
		if errors.As(err, &unavailable) {
			unavailable.Asset = cmd.Asset
			unavailable.Currency = cmd.FiatCurrency
			s.reject(ctx, "rate_unavailable", err)
			return nil, err
		}
		s.reject(ctx, "invalid", err)
		return nil, err
	}

	if err := s.guard.CheckMinimum(cmd.Type, cmd.FiatCurrency, amounts.Fiat); err != nil {
		s.reject(ctx, "below_minimum", err)
		return nil, err
	}

	deposit, err := s.guard.ResolveDestination(ctx, cmd.Type, cmd.Asset, cmd.FiatCurrency)
	if err != nil {
		var noDest *domain.NoDestinationError
		if errors.As(err, &noDest) {
			s.reject(ctx, "no_destination", err)
			return nil, err
		}
		s.reject(ctx, "persistence", err)
		return nil, &domain.OrderCreationError{Cause: err}
	}

	return &Quotation{
		Asset:          cmd.Asset,
		FiatCurrency:   cmd.FiatCurrency,
		Type:           cmd.Type,
		Effective:      effective,
		FinalRate:      finalRate,
		Amounts:        amounts,
		DepositAddress: deposit,
	}, nil
}

func (s *OrderCommandService) reject(ctx context.Context, reason string, err error) {
	s.metrics.RecordOrderRejected(reason)
	logger.Info(ctx, "Order rejected", "reason", reason, "error", err)
}
