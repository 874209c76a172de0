package position

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/azerpas/bourso-desktop/internal/order"
)

// Holding 汇总单个标的在成交历史中的净持仓与成本。
type Holding struct {
	Symbol   string          `json:"symbol"`
	Shares   int64           `json:"shares"`
	Invested decimal.Decimal `json:"invested"`
	Proceeds decimal.Decimal `json:"proceeds"`
	Orders   int             `json:"orders"`
}

// AverageCost 返回买入均价，没有买入时为零。
func (h Holding) AverageCost(bought int64) decimal.Decimal {
	if bought <= 0 {
		return decimal.Zero
	}
	return h.Invested.Div(decimal.NewFromInt(bought)).Round(4)
}

// Net 返回卖出所得减去买入成本。
func (h Holding) Net() decimal.Decimal {
	return h.Proceeds.Sub(h.Invested)
}

// Summary 是按标的汇总的持仓列表。
type Summary struct {
	Holdings []Holding
	// Bought 记录每个标的累计买入股数，用于计算均价。
	Bought map[string]int64
}

// Summarize 按标的汇总成交历史，结果按标的排序。
// 金额型订单的股数按 floor(amount / 成交价) 估算。
func Summarize(orders []order.Passed) Summary {
	bySymbol := make(map[string]*Holding)
	bought := make(map[string]int64)

	for _, p := range orders {
		symbol := strings.ToUpper(strings.TrimSpace(p.Args.Symbol))
		if symbol == "" {
			continue
		}
		shares := sharesOf(p)
		if shares <= 0 {
			continue
		}

		h, ok := bySymbol[symbol]
		if !ok {
			h = &Holding{Symbol: symbol, Invested: decimal.Zero, Proceeds: decimal.Zero}
			bySymbol[symbol] = h
		}
		value := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(shares))
		switch p.Args.Side {
		case order.SideSell:
			h.Shares -= shares
			h.Proceeds = h.Proceeds.Add(value)
		default:
			h.Shares += shares
			h.Invested = h.Invested.Add(value)
			bought[symbol] += shares
		}
		h.Orders++
	}

	holdings := make([]Holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		holdings = append(holdings, *h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return Summary{Holdings: holdings, Bought: bought}
}

func sharesOf(p order.Passed) int64 {
	if p.Args.Quantity != nil {
		return *p.Args.Quantity
	}
	if p.Args.Amount == nil || p.Price <= 0 {
		return 0
	}
	return decimal.NewFromFloat(*p.Args.Amount).Div(decimal.NewFromFloat(p.Price)).Floor().IntPart()
}
