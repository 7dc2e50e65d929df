package domain

import (
	"github.com/shopspring/decimal"
)

const (
	CryptoPrecision = 8
	FiatPrecision   = 2
)

// Amounts 订单双边金额
type Amounts struct {
	Crypto decimal.Decimal
	Fiat   decimal.Decimal
}

// ComputeAmounts 由输入金额与成交汇率换算另一边金额，
// 加密货币保留 8 位、法币保留 2 位，四舍五入远离零。
// 任一边舍入后不为正时返回 InvalidOrderError
func ComputeAmounts(amountInput decimal.Decimal, inputType InputType, finalRate decimal.Decimal) (Amounts, error) {
	if !finalRate.IsPositive() {
		return Amounts{}, &RateUnavailableError{}
	}

	var a Amounts
	if inputType == InputFiat {
		a.Fiat = amountInput.Round(FiatPrecision)
		a.Crypto = a.Fiat.DivRound(finalRate, CryptoPrecision)
	} else {
		a.Crypto = amountInput.Round(CryptoPrecision)
		a.Fiat = a.Crypto.Mul(finalRate).Round(FiatPrecision)
	}

	if !a.Crypto.IsPositive() || !a.Fiat.IsPositive() {
		return Amounts{}, &InvalidOrderError{Field: "amount", Reason: "too small"}
	}
	return a, nil
}
