package auth

import (
	"errors"
	"fmt"

	"github.com/azerpas/bourso-desktop/internal/broker"
)

var (
	// ErrAuthentication 表示登录或验证码提交失败，本次尝试终止。
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotAuthenticated 表示会话尚未登录。
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrUnknownChallenge 表示提交的验证码请求不在待处理列表中。
	ErrUnknownChallenge = errors.New("unknown mfa challenge")
	// ErrMfaNotAllowed 表示无人值守登录遇到了验证码要求，不会请求验证码。
	ErrMfaNotAllowed = errors.New("mfa required in unattended login")
)

// MfaRequiredError 表示需要用户在外部获取验证码后调用 SubmitMfa。
type MfaRequiredError struct {
	Challenge broker.Challenge
}

func (e *MfaRequiredError) Error() string {
	return fmt.Sprintf("mfa required: %s challenge %s", e.Challenge.Type, e.Challenge.OtpID)
}

// Is 使 errors.Is(err, broker.ErrMfaRequired) 对该错误成立。
func (e *MfaRequiredError) Is(target error) bool {
	return target == broker.ErrMfaRequired
}

// AsMfaRequired 提取 MfaRequiredError。
func AsMfaRequired(err error) (*MfaRequiredError, bool) {
	var mfaErr *MfaRequiredError
	if errors.As(err, &mfaErr) {
		return mfaErr, true
	}
	return nil, false
}
