package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuoteLookup 表示无法获取用于换算金额的实时报价。
	ErrQuoteLookup = errors.New("quote lookup failed")
	// ErrUnresolvedQuantity 表示数量与金额均未设置。
	ErrUnresolvedQuantity = errors.New("neither quantity nor amount set")
)

// QuoteLookup 返回标的最新成交价。
type QuoteLookup func(ctx context.Context, symbol string) (float64, error)

// ResolveQuantity 将下单意图换算为整数股数。
// 设置了金额时按 floor(amount / last_price) 计算，永远不会向上取整；否则直接使用数量。
func ResolveQuantity(ctx context.Context, args Args, lookup QuoteLookup) (int64, error) {
	if args.Amount != nil {
		if lookup == nil {
			return 0, fmt.Errorf("%w: %s: 未提供报价来源", ErrQuoteLookup, args.Symbol)
		}
		last, err := lookup(ctx, args.Symbol)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrQuoteLookup, args.Symbol, err)
		}
		if last <= 0 {
			return 0, fmt.Errorf("%w: %s: 报价无效 %v", ErrQuoteLookup, args.Symbol, last)
		}

		qty := decimal.NewFromFloat(*args.Amount).
			Div(decimal.NewFromFloat(last)).
			Floor()
		return qty.IntPart(), nil
	}

	if args.Quantity != nil {
		return *args.Quantity, nil
	}

	return 0, ErrUnresolvedQuantity
}
