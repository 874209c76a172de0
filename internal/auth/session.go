package auth

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/azerpas/bourso-desktop/internal/broker"
)

// State 表示会话所处的认证阶段。
type State int

const (
	StateAnonymous State = iota
	StateSessionInitialized
	StateMfaPending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateSessionInitialized:
		return "session_initialized"
	case StateMfaPending:
		return "mfa_pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session 独占持有券商客户端。所有券商调用都通过 owner 信号量串行执行，
// 待处理的验证码列表保存在会话中，调用方可以跨多次交互逐个提交。
type Session struct {
	owner   *semaphore.Weighted
	factory broker.Factory
	logger  *zap.Logger

	client broker.Broker

	mu       sync.RWMutex
	state    State
	pending  []broker.Challenge
	clientID string
	password string
}

// NewSession 通过工厂创建券商客户端并返回匿名会话。
func NewSession(factory broker.Factory, logger *zap.Logger) (*Session, error) {
	if factory == nil {
		return nil, fmt.Errorf("auth: 券商工厂不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := factory()
	if err != nil {
		return nil, fmt.Errorf("auth: 创建券商客户端失败: %w", err)
	}
	return &Session{
		owner:   semaphore.NewWeighted(1),
		factory: factory,
		logger:  logger,
		client:  client,
		state:   StateAnonymous,
	}, nil
}

// State 返回当前认证阶段。
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Challenges 返回待处理验证码列表的副本，按请求顺序排列。
func (s *Session) Challenges() []broker.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]broker.Challenge, len(s.pending))
	copy(out, s.pending)
	return out
}

// Login 使用客户号与密码登录。已登录时直接返回。
// 券商要求验证码时会请求一个新的验证码、追加到待处理列表并返回 *MfaRequiredError。
func (s *Session) Login(ctx context.Context, clientID, password string) error {
	return s.login(ctx, clientID, password, true)
}

// LoginUnattended 与 Login 相同，但券商要求验证码时不请求验证码，
// 直接返回同时匹配 ErrMfaNotAllowed 与 broker.ErrMfaRequired 的错误，会话保持未登录。
func (s *Session) LoginUnattended(ctx context.Context, clientID, password string) error {
	return s.login(ctx, clientID, password, false)
}

func (s *Session) login(ctx context.Context, clientID, password string, interactive bool) error {
	if err := s.owner.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.owner.Release(1)

	if s.State() == StateAuthenticated {
		return nil
	}

	if err := s.ensureSession(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.clientID = clientID
	s.password = password
	s.mu.Unlock()

	err := s.client.Login(ctx, clientID, password)
	switch {
	case err == nil:
		s.setAuthenticated()
		s.logger.Info("登录成功")
		return nil
	case broker.IsMfaRequired(err) && interactive:
		return s.requestChallenge(ctx)
	case broker.IsMfaRequired(err):
		s.logger.Warn("无人值守登录需要验证码，放弃登录")
		return fmt.Errorf("%w: %w", ErrMfaNotAllowed, err)
	default:
		s.logger.Warn("登录失败", zap.Error(err))
		return fmt.Errorf("%w: 登录: %v", ErrAuthentication, err)
	}
}

// SubmitMfa 提交验证码。challengeID 必须是待处理列表中的 OtpID。
//
// 若券商再次要求验证，而待处理列表已包含 sms 与 email 两类验证码（长度不少于 2），
// 则视为验证已解除限制：丢弃当前客户端，重新初始化会话并用已记住的凭证登录，
// 不再请求第三个验证码。
func (s *Session) SubmitMfa(ctx context.Context, challengeID, code string) error {
	if err := s.owner.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.owner.Release(1)

	challenge, ok := s.findChallenge(challengeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChallenge, challengeID)
	}

	err := s.client.SubmitMfa(ctx, challenge, code)
	switch {
	case err == nil:
		s.setAuthenticated()
		s.logger.Info("验证码校验通过", zap.String("mfa_type", string(challenge.Type)))
		return nil
	case broker.IsMfaRequired(err):
		if s.verificationCleared() {
			s.logger.Info("sms 与 email 验证均已完成，重置会话")
			return s.reset(ctx)
		}
		return s.requestChallenge(ctx)
	default:
		s.logger.Warn("验证码提交失败", zap.Error(err))
		return fmt.Errorf("%w: 提交验证码: %v", ErrAuthentication, err)
	}
}

// Do 以独占方式使用已登录的券商客户端执行 fn。
func (s *Session) Do(ctx context.Context, fn func(broker.Broker) error) error {
	if err := s.owner.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.owner.Release(1)

	if s.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	return fn(s.client)
}

func (s *Session) ensureSession(ctx context.Context) error {
	if s.client.HasSession() {
		s.mu.Lock()
		if s.state == StateAnonymous {
			s.state = StateSessionInitialized
		}
		s.mu.Unlock()
		return nil
	}
	if err := s.client.InitSession(ctx); err != nil {
		return fmt.Errorf("%w: 初始化会话: %v", ErrAuthentication, err)
	}
	s.mu.Lock()
	s.state = StateSessionInitialized
	s.mu.Unlock()
	return nil
}

func (s *Session) requestChallenge(ctx context.Context) error {
	challenge, err := s.client.RequestMfa(ctx)
	if err != nil {
		return fmt.Errorf("%w: 请求验证码: %v", ErrAuthentication, err)
	}

	s.mu.Lock()
	s.pending = append(s.pending, challenge)
	s.state = StateMfaPending
	count := len(s.pending)
	s.mu.Unlock()

	s.logger.Info("需要验证码",
		zap.String("mfa_type", string(challenge.Type)),
		zap.String("otp_id", challenge.OtpID),
		zap.Int("pending", count),
	)
	return &MfaRequiredError{Challenge: challenge}
}

func (s *Session) findChallenge(id string) (broker.Challenge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.pending {
		if c.OtpID == id {
			return c, true
		}
	}
	return broker.Challenge{}, false
}

func (s *Session) verificationCleared() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.pending) < 2 {
		return false
	}
	var sms, email bool
	for _, c := range s.pending {
		switch c.Type {
		case broker.MfaSms:
			sms = true
		case broker.MfaEmail:
			email = true
		}
	}
	return sms && email
}

// reset 丢弃当前客户端，用工厂创建新客户端并重新登录。
func (s *Session) reset(ctx context.Context) error {
	client, err := s.factory()
	if err != nil {
		return fmt.Errorf("%w: 重建券商客户端: %v", ErrAuthentication, err)
	}
	s.client = client

	s.mu.Lock()
	s.state = StateAnonymous
	clientID, password := s.clientID, s.password
	s.mu.Unlock()

	if err := s.ensureSession(ctx); err != nil {
		return err
	}
	if clientID != "" {
		if err := s.client.Login(ctx, clientID, password); err != nil {
			return fmt.Errorf("%w: 重置后登录: %v", ErrAuthentication, err)
		}
	}

	s.setAuthenticated()
	return nil
}

func (s *Session) setAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.pending = nil
}
