package order

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fixedQuote(price float64) QuoteLookup {
	return func(context.Context, string) (float64, error) {
		return price, nil
	}
}

func TestResolveQuantity_FromAmount(t *testing.T) {
	cases := []struct {
		amount float64
		price  float64
		want   int64
	}{
		{100.0, 25.0, 4},
		{99.0, 25.0, 3},
		{24.99, 25.0, 0},
		{0.3, 0.1, 3},
	}

	for _, tc := range cases {
		args := Args{Symbol: "1rTCW8", Amount: Float64(tc.amount), Quantity: Int64(99)}
		got, err := ResolveQuantity(context.Background(), args, fixedQuote(tc.price))
		if err != nil {
			t.Fatalf("amount=%v price=%v: unexpected error %v", tc.amount, tc.price, err)
		}
		if got != tc.want {
			t.Errorf("amount=%v price=%v: got %d want %d", tc.amount, tc.price, got, tc.want)
		}
	}
}

func TestResolveQuantity_FromQuantity(t *testing.T) {
	called := false
	lookup := func(context.Context, string) (float64, error) {
		called = true
		return 1, nil
	}

	got, err := ResolveQuantity(context.Background(), Args{Symbol: "X", Quantity: Int64(7)}, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d want 7", got)
	}
	if called {
		t.Fatalf("quote lookup must not be used when only quantity is set")
	}
}

func TestResolveQuantity_Errors(t *testing.T) {
	_, err := ResolveQuantity(context.Background(), Args{Symbol: "X"}, fixedQuote(10))
	if !errors.Is(err, ErrUnresolvedQuantity) {
		t.Fatalf("expected ErrUnresolvedQuantity, got %v", err)
	}

	failing := func(context.Context, string) (float64, error) {
		return 0, errors.New("timeout")
	}
	_, err = ResolveQuantity(context.Background(), Args{Symbol: "X", Amount: Float64(50)}, failing)
	if !errors.Is(err, ErrQuoteLookup) {
		t.Fatalf("expected ErrQuoteLookup, got %v", err)
	}

	_, err = ResolveQuantity(context.Background(), Args{Symbol: "X", Amount: Float64(50)}, fixedQuote(0))
	if !errors.Is(err, ErrQuoteLookup) {
		t.Fatalf("expected ErrQuoteLookup for zero price, got %v", err)
	}
}

func TestArgs_Describe(t *testing.T) {
	byAmount := Args{Symbol: "1rTCW8", Side: SideBuy, Amount: Float64(100)}
	if got := byAmount.Describe(); got != "buy 100€ of 1rTCW8" {
		t.Errorf("unexpected description %q", got)
	}
	byQty := Args{Symbol: "1rTCW8", Side: SideSell, Quantity: Int64(2)}
	if got := byQty.Describe(); got != "sell 2 share(s) of 1rTCW8" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHistory_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), HistoryFileName)
	h := NewHistory(path)

	orders, err := h.List()
	if err != nil {
		t.Fatalf("List on missing file returned error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty history, got %d", len(orders))
	}

	first := Passed{ID: "o-1", Price: 25, Args: Args{Account: "acc", Symbol: "X", Quantity: Int64(4), Side: SideBuy}}
	second := Passed{ID: "o-1", Price: 26, Args: Args{Account: "acc", Symbol: "X", Amount: Float64(100), Side: SideBuy}}
	if err := h.Append(first); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := h.Append(second); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	orders, err = h.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected duplicates to be kept, got %d orders", len(orders))
	}
	if orders[0].Price != 25 || orders[1].Price != 26 {
		t.Errorf("expected append order to be preserved, got %+v", orders)
	}
}

func TestHistory_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), HistoryFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := NewHistory(path).Append(Passed{ID: "x"}); err == nil {
		t.Fatalf("expected corrupt history to fail append")
	}
}
