package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// UpsertPairCommand 新增或更新交易对
type UpsertPairCommand struct {
	Pair              string
	Rate              decimal.Decimal
	ManualRate        decimal.NullDecimal
	MarginPercent     decimal.Decimal
	BuyMarginPercent  decimal.NullDecimal
	SellMarginPercent decimal.NullDecimal
	IsAutomated       bool
}

// RateCommandService 交易对管理
type RateCommandService struct {
	repo domain.TradingPairRepository
}

// NewRateCommandService 创建交易对管理服务
func NewRateCommandService(repo domain.TradingPairRepository) *RateCommandService {
	return &RateCommandService{repo: repo}
}

// UpsertPair 校验并保存交易对
func (s *RateCommandService) UpsertPair(ctx context.Context, cmd UpsertPairCommand) (*domain.TradingPair, error) {
	pair := strings.ToUpper(strings.TrimSpace(cmd.Pair))
	if err := domain.ValidatePair(pair); err != nil {
		return nil, err
	}
	if cmd.Rate.IsNegative() || (cmd.ManualRate.Valid && cmd.ManualRate.Decimal.IsNegative()) {
		return nil, fmt.Errorf("rates must not be negative")
	}

	tp := &domain.TradingPair{
		Pair:              pair,
		Rate:              cmd.Rate,
		ManualRate:        cmd.ManualRate,
		MarginPercent:     cmd.MarginPercent,
		BuyMarginPercent:  cmd.BuyMarginPercent,
		SellMarginPercent: cmd.SellMarginPercent,
		IsAutomated:       cmd.IsAutomated,
	}
	if err := s.repo.Upsert(ctx, tp); err != nil {
		return nil, err
	}
	logger.Info(ctx, "Trading pair saved", "pair", pair, "automated", cmd.IsAutomated)
	return tp, nil
}

// DeletePair 删除交易对
func (s *RateCommandService) DeletePair(ctx context.Context, pair string) error {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if err := s.repo.Delete(ctx, pair); err != nil {
		return err
	}
	logger.Info(ctx, "Trading pair deleted", "pair", pair)
	return nil
}
