package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/azerpas/bourso-desktop/internal/order"
)

// ErrMfaRequired 是券商在登录或提交验证码后要求继续多因素验证时返回的标记错误。
var ErrMfaRequired = errors.New("mfa required")

// ErrMfaUnsupported 表示券商不支持多因素验证流程。
var ErrMfaUnsupported = errors.New("mfa not supported by broker")

// MfaType 表示验证码的投递渠道。
type MfaType string

const (
	MfaSms      MfaType = "sms"
	MfaEmail    MfaType = "email"
	MfaWebAuthn MfaType = "webauthn"
)

// Challenge 是一次待回答的验证码请求。
type Challenge struct {
	OtpID string  `json:"otp_id"`
	Token string  `json:"token"`
	Type  MfaType `json:"mfa_type"`
}

// Quote 为标的报价。
type Quote struct {
	LastPrice float64
}

// Fill 为下单回执。Price 缺失视为券商违约。
type Fill struct {
	OrderID string
	Price   *float64
}

// Broker 是券商能力接口。实现不要求并发安全，调用方需自行串行化。
type Broker interface {
	// HasSession 报告是否已持有会话令牌。
	HasSession() bool
	InitSession(ctx context.Context) error
	// Login 成功返回 nil，需要验证码时返回包裹 ErrMfaRequired 的错误。
	Login(ctx context.Context, clientID, password string) error
	RequestMfa(ctx context.Context) (Challenge, error)
	// SubmitMfa 同 Login，可能再次返回 ErrMfaRequired。
	SubmitMfa(ctx context.Context, challenge Challenge, code string) error
	IsMarketOpen(ctx context.Context, symbol string) (bool, error)
	InstrumentQuote(ctx context.Context, symbol string) (Quote, error)
	PlaceOrder(ctx context.Context, side order.Side, account, symbol string, quantity int64) (Fill, error)
}

// Factory 创建全新的券商客户端，用于重置会话。
type Factory func() (Broker, error)

// IsMfaRequired 判断错误是否为多因素验证要求。
func IsMfaRequired(err error) bool {
	return errors.Is(err, ErrMfaRequired)
}

// MfaRequired 返回携带上下文信息的多因素验证错误。
func MfaRequired(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMfaRequired, fmt.Sprintf(format, args...))
}
