package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
		retry    bool
	}{
		{name: "network", err: &ccxt.Error{Type: ccxt.RequestTimeoutErrType}, retry: true},
		{name: "maintenance", err: &ccxt.Error{Type: ccxt.OnMaintenanceErrType, Message: "upgrade"}, sentinel: ErrMaintenance},
		{name: "funds", err: fmt.Errorf("wrapped: %w", &ccxt.Error{Type: ccxt.InsufficientFundsErrType}), sentinel: ErrInsufficientFunds},
		{name: "auth", err: &ccxt.Error{Type: ccxt.AuthenticationErrorErrType, Message: "bad key"}, sentinel: ErrInvalidCredentials},
		{name: "canceled", err: context.Canceled, sentinel: context.Canceled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, retry := classify(tc.err)
			if retry != tc.retry {
				t.Fatalf("retry = %v, want %v", retry, tc.retry)
			}
			if tc.sentinel != nil && !errors.Is(got, tc.sentinel) {
				t.Fatalf("expected %v, got %v", tc.sentinel, got)
			}
		})
	}

	if got, _ := classify(nil); got != nil {
		t.Fatalf("nil error must stay nil")
	}
}
