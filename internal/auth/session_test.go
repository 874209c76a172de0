package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/order"
)

// scriptedBroker 按脚本依次返回登录与验证码结果。
type scriptedBroker struct {
	session      bool
	initCalls    int
	loginErrs    []error
	submitErrs   []error
	mfaTypes     []broker.MfaType
	requested    int
	loginCalls   int
	submitCalls  int
	placedOrders int
}

func (b *scriptedBroker) HasSession() bool { return b.session }

func (b *scriptedBroker) InitSession(context.Context) error {
	b.initCalls++
	b.session = true
	return nil
}

func (b *scriptedBroker) Login(context.Context, string, string) error {
	b.loginCalls++
	return pop(&b.loginErrs)
}

func (b *scriptedBroker) RequestMfa(context.Context) (broker.Challenge, error) {
	mfaType := broker.MfaSms
	if b.requested < len(b.mfaTypes) {
		mfaType = b.mfaTypes[b.requested]
	}
	b.requested++
	return broker.Challenge{OtpID: fmt.Sprintf("otp-%d", b.requested), Token: "tok", Type: mfaType}, nil
}

func (b *scriptedBroker) SubmitMfa(context.Context, broker.Challenge, string) error {
	b.submitCalls++
	return pop(&b.submitErrs)
}

func (b *scriptedBroker) IsMarketOpen(context.Context, string) (bool, error) { return true, nil }

func (b *scriptedBroker) InstrumentQuote(context.Context, string) (broker.Quote, error) {
	return broker.Quote{LastPrice: 1}, nil
}

func (b *scriptedBroker) PlaceOrder(context.Context, order.Side, string, string, int64) (broker.Fill, error) {
	b.placedOrders++
	price := 1.0
	return broker.Fill{OrderID: "o", Price: &price}, nil
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

// factoryOf 依次返回给定的券商实例。
func factoryOf(brokers ...*scriptedBroker) (broker.Factory, *int) {
	created := 0
	return func() (broker.Broker, error) {
		if created >= len(brokers) {
			return nil, errors.New("no more brokers")
		}
		b := brokers[created]
		created++
		return b, nil
	}, &created
}

func newSession(t *testing.T, brokers ...*scriptedBroker) (*Session, *int) {
	t.Helper()
	factory, created := factoryOf(brokers...)
	s, err := NewSession(factory, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, created
}

func TestSession_LoginWithoutMfa(t *testing.T) {
	b := &scriptedBroker{}
	s, _ := newSession(t, b)

	if s.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", s.State())
	}
	if err := s.Do(context.Background(), func(broker.Broker) error { return nil }); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := s.Login(context.Background(), "id", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s.State())
	}
	if b.initCalls != 1 {
		t.Fatalf("expected one InitSession, got %d", b.initCalls)
	}

	if err := s.Login(context.Background(), "id", "pw"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if b.loginCalls != 1 {
		t.Fatalf("login on authenticated session must be a no-op")
	}
}

func TestSession_SkipsInitWhenTokenPresent(t *testing.T) {
	b := &scriptedBroker{session: true}
	s, _ := newSession(t, b)
	if err := s.Login(context.Background(), "id", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if b.initCalls != 0 {
		t.Fatalf("expected InitSession to be skipped, got %d calls", b.initCalls)
	}
}

func TestSession_LoginFailure(t *testing.T) {
	b := &scriptedBroker{loginErrs: []error{errors.New("bad password")}}
	s, _ := newSession(t, b)

	err := s.Login(context.Background(), "id", "pw")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if s.State() == StateAuthenticated {
		t.Fatalf("failed login must not authenticate")
	}
}

func TestSession_MfaRoundTrip(t *testing.T) {
	b := &scriptedBroker{loginErrs: []error{broker.ErrMfaRequired}}
	s, _ := newSession(t, b)
	ctx := context.Background()

	err := s.Login(ctx, "id", "pw")
	mfaErr, ok := AsMfaRequired(err)
	if !ok {
		t.Fatalf("expected MfaRequiredError, got %v", err)
	}
	if !errors.Is(err, broker.ErrMfaRequired) {
		t.Fatalf("MfaRequiredError must match broker.ErrMfaRequired")
	}
	if s.State() != StateMfaPending {
		t.Fatalf("expected mfa pending, got %s", s.State())
	}
	if got := s.Challenges(); len(got) != 1 || got[0].OtpID != mfaErr.Challenge.OtpID {
		t.Fatalf("unexpected pending challenges %+v", got)
	}

	if err := s.SubmitMfa(ctx, "unknown", "000000"); !errors.Is(err, ErrUnknownChallenge) {
		t.Fatalf("expected ErrUnknownChallenge, got %v", err)
	}
	if err := s.SubmitMfa(ctx, mfaErr.Challenge.OtpID, "123456"); err != nil {
		t.Fatalf("SubmitMfa: %v", err)
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s.State())
	}
	if len(s.Challenges()) != 0 {
		t.Fatalf("expected pending challenges to be cleared")
	}
}

func TestSession_LoginUnattendedNeverRequestsMfa(t *testing.T) {
	b := &scriptedBroker{loginErrs: []error{broker.ErrMfaRequired}}
	s, _ := newSession(t, b)

	err := s.LoginUnattended(context.Background(), "id", "pw")
	if !errors.Is(err, ErrMfaNotAllowed) || !errors.Is(err, broker.ErrMfaRequired) {
		t.Fatalf("expected ErrMfaNotAllowed, got %v", err)
	}
	if _, ok := AsMfaRequired(err); ok {
		t.Fatalf("unattended login must not return a challenge")
	}
	if b.requested != 0 || len(s.Challenges()) != 0 {
		t.Fatalf("expected no mfa request, got %d requested", b.requested)
	}
	if s.State() == StateAuthenticated || s.State() == StateMfaPending {
		t.Fatalf("unexpected state %s", s.State())
	}

	if err := s.LoginUnattended(context.Background(), "id", "pw"); err != nil {
		t.Fatalf("second LoginUnattended: %v", err)
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s.State())
	}
}

func TestSession_RepeatedMfaAppendsChallenge(t *testing.T) {
	b := &scriptedBroker{
		loginErrs:  []error{broker.ErrMfaRequired},
		submitErrs: []error{broker.ErrMfaRequired},
		mfaTypes:   []broker.MfaType{broker.MfaSms, broker.MfaSms},
	}
	s, _ := newSession(t, b)
	ctx := context.Background()

	first, _ := AsMfaRequired(s.Login(ctx, "id", "pw"))
	err := s.SubmitMfa(ctx, first.Challenge.OtpID, "1")
	if _, ok := AsMfaRequired(err); !ok {
		t.Fatalf("expected another MfaRequiredError, got %v", err)
	}
	if got := len(s.Challenges()); got != 2 {
		t.Fatalf("expected two pending challenges, got %d", got)
	}
	if s.State() != StateMfaPending {
		t.Fatalf("expected mfa pending, got %s", s.State())
	}
}

func TestSession_SmsAndEmailClearRestriction(t *testing.T) {
	first := &scriptedBroker{
		loginErrs:  []error{broker.ErrMfaRequired},
		submitErrs: []error{broker.ErrMfaRequired, broker.ErrMfaRequired},
		mfaTypes:   []broker.MfaType{broker.MfaSms, broker.MfaEmail, broker.MfaSms},
	}
	fresh := &scriptedBroker{}
	s, created := newSession(t, first, fresh)
	ctx := context.Background()

	smsErr, _ := AsMfaRequired(s.Login(ctx, "id", "pw"))
	emailErr, ok := AsMfaRequired(s.SubmitMfa(ctx, smsErr.Challenge.OtpID, "111111"))
	if !ok {
		t.Fatalf("expected email challenge")
	}
	if emailErr.Challenge.Type != broker.MfaEmail {
		t.Fatalf("expected email challenge, got %s", emailErr.Challenge.Type)
	}

	if err := s.SubmitMfa(ctx, emailErr.Challenge.OtpID, "222222"); err != nil {
		t.Fatalf("expected session reset to succeed, got %v", err)
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s.State())
	}
	if first.requested != 2 {
		t.Fatalf("a third challenge must not be requested, got %d", first.requested)
	}
	if *created != 2 {
		t.Fatalf("expected the client to be replaced, factory called %d times", *created)
	}
	if fresh.initCalls != 1 || fresh.loginCalls != 1 {
		t.Fatalf("expected fresh client to be initialized and logged in, got init=%d login=%d", fresh.initCalls, fresh.loginCalls)
	}

	if err := s.Do(ctx, func(b broker.Broker) error {
		_, err := b.PlaceOrder(ctx, order.SideBuy, "acc", "X", 1)
		return err
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if fresh.placedOrders != 1 || first.placedOrders != 0 {
		t.Fatalf("expected orders to go through the fresh client")
	}
}

func TestSession_DoSerializesCallers(t *testing.T) {
	s, _ := newSession(t, &scriptedBroker{})
	ctx := context.Background()
	if err := s.Login(ctx, "id", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Do(ctx, func(broker.Broker) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := s.Do(waitCtx, func(broker.Broker) error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second caller to wait for the owner, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first caller: %v", err)
	}
}
