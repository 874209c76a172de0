package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

var (
	// ErrMaintenance 表示交易所处于维护状态，本轮任务应跳过。
	ErrMaintenance = errors.New("exchange on maintenance")
	// ErrInvalidCredentials 表示交易所拒绝了 API 凭证。
	ErrInvalidCredentials = errors.New("exchange rejected credentials")
	// ErrInsufficientFunds 表示账户余额不足以成交。
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// 网络抖动与限频类错误可以安全重试，其余一律直接返回。
var transientTypes = map[ccxt.ErrorType]struct{}{
	ccxt.NetworkErrorErrType:         {},
	ccxt.RequestTimeoutErrType:       {},
	ccxt.ExchangeNotAvailableErrType: {},
	ccxt.RateLimitExceededErrType:    {},
	ccxt.DDoSProtectionErrType:       {},
	ccxt.BadResponseErrType:          {},
	ccxt.NullResponseErrType:         {},
}

// IsRetryable 判断交易所错误是否属于瞬时故障。
func IsRetryable(err error) bool {
	var ccxtErr *ccxt.Error
	if !errors.As(err, &ccxtErr) {
		return false
	}
	_, ok := transientTypes[ccxtErr.Type]
	return ok
}

// classify 把 ccxt 错误映射为本包的哨兵错误，并给出是否可重试。
func classify(err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if IsRetryable(err) {
			return err, true
		}
		message := strings.TrimSpace(ccxtErr.Message)
		switch ccxtErr.Type {
		case ccxt.OnMaintenanceErrType:
			return wrapSentinel(ErrMaintenance, message), false
		case ccxt.AuthenticationErrorErrType:
			return wrapSentinel(ErrInvalidCredentials, message), false
		case ccxt.InsufficientFundsErrType:
			return wrapSentinel(ErrInsufficientFunds, message), false
		}
		return err, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}
	return err, false
}

func wrapSentinel(sentinel error, message string) error {
	if message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}
