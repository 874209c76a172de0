package position

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/azerpas/bourso-desktop/internal/order"
)

func passed(side order.Side, symbol string, qty *int64, amount *float64, price float64) order.Passed {
	return order.Passed{
		ID:    symbol,
		Price: price,
		Args:  order.Args{Account: "acc", Symbol: symbol, Quantity: qty, Amount: amount, Side: side},
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]order.Passed{
		passed(order.SideBuy, "abc", order.Int64(2), nil, 10),
		passed(order.SideBuy, "ABC", nil, order.Float64(99), 25),
		passed(order.SideSell, "ABC", order.Int64(1), nil, 30),
		passed(order.SideBuy, "XYZ", order.Int64(1), nil, 5),
		passed(order.SideBuy, "", order.Int64(1), nil, 5),
	})

	if len(summary.Holdings) != 2 {
		t.Fatalf("expected two holdings, got %d", len(summary.Holdings))
	}
	abc := summary.Holdings[0]
	if abc.Symbol != "ABC" {
		t.Fatalf("expected holdings sorted by symbol, got %s first", abc.Symbol)
	}
	// 2 + floor(99/25)=3 - 1
	if abc.Shares != 4 {
		t.Fatalf("expected 4 shares, got %d", abc.Shares)
	}
	if !abc.Invested.Equal(mustDecimal(t, "95")) {
		t.Fatalf("expected invested 95, got %s", abc.Invested)
	}
	if !abc.Proceeds.Equal(mustDecimal(t, "30")) {
		t.Fatalf("expected proceeds 30, got %s", abc.Proceeds)
	}
	if !abc.Net().Equal(mustDecimal(t, "-65")) {
		t.Fatalf("expected net -65, got %s", abc.Net())
	}
	if got := abc.AverageCost(summary.Bought["ABC"]); !got.Equal(mustDecimal(t, "19")) {
		t.Fatalf("expected average cost 19, got %s", got)
	}
	if abc.Orders != 3 {
		t.Fatalf("expected 3 orders, got %d", abc.Orders)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); len(s.Holdings) != 0 {
		t.Fatalf("expected no holdings")
	}
	var h Holding
	if !h.AverageCost(0).IsZero() {
		t.Fatalf("average cost without buys must be zero")
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}
