package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/config"
	"github.com/azerpas/bourso-desktop/internal/order"
)

// ErrUnknownSymbol 表示模拟券商没有该标的的报价。
var ErrUnknownSymbol = errors.New("unknown symbol")

// PlacedOrder 记录模拟券商接受的订单。
type PlacedOrder struct {
	ID       string
	Side     order.Side
	Account  string
	Symbol   string
	Quantity int64
	Price    float64
	At       time.Time
}

// MarketCalendar 判断某一时刻市场是否开盘。
type MarketCalendar interface {
	IsOpen(t time.Time) bool
}

// Paper 是基于配置价格的模拟券商，按市价立即成交。
// 登录会先要求 MfaRounds 轮验证码，验证码渠道依次为 sms、email 交替。
type Paper struct {
	mu sync.Mutex

	prices     map[string]float64
	marketOpen bool
	closed     map[string]bool
	calendar   MarketCalendar
	mfaRounds  int
	now        func() time.Time
	logger     *zap.Logger

	session       string
	authenticated bool
	remaining     int
	issued        int
	orders        []PlacedOrder
}

// NewPaper 创建模拟券商。calendar 可为空，为空时只看 market_open 开关。
func NewPaper(cfg config.PaperConfig, calendar MarketCalendar, logger *zap.Logger) *Paper {
	if logger == nil {
		logger = zap.NewNop()
	}
	prices := make(map[string]float64, len(cfg.Prices))
	for symbol, price := range cfg.Prices {
		prices[normalizeSymbol(symbol)] = price
	}
	return &Paper{
		prices:     prices,
		marketOpen: cfg.MarketOpen,
		closed:     make(map[string]bool),
		calendar:   calendar,
		mfaRounds:  cfg.MfaRounds,
		now:        time.Now,
		logger:     logger,
	}
}

// PaperFactory 返回每次创建全新模拟券商的工厂。
func PaperFactory(cfg config.PaperConfig, calendar MarketCalendar, logger *zap.Logger) Factory {
	return func() (Broker, error) {
		return NewPaper(cfg, calendar, logger), nil
	}
}

// SetPrice 设置标的最新价。
func (p *Paper) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[normalizeSymbol(symbol)] = price
}

// SetMarketOpen 单独设置某个标的是否可交易。
func (p *Paper) SetMarketOpen(symbol string, open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed[normalizeSymbol(symbol)] = !open
}

// Orders 返回已成交订单的副本。
func (p *Paper) Orders() []PlacedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlacedOrder, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *Paper) HasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != ""
}

func (p *Paper) InitSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = uuid.NewString()
	p.logger.Debug("模拟券商会话已初始化", zap.String("session", p.session))
	return nil
}

func (p *Paper) Login(ctx context.Context, clientID, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == "" {
		return errors.New("paper: 会话未初始化")
	}
	if strings.TrimSpace(clientID) == "" || password == "" {
		return errors.New("paper: 客户号或密码为空")
	}
	if p.mfaRounds > 0 {
		p.remaining = p.mfaRounds
		return MfaRequired("paper: 需要 %d 轮验证", p.mfaRounds)
	}
	p.authenticated = true
	return nil
}

func (p *Paper) RequestMfa(ctx context.Context) (Challenge, error) {
	if err := ctx.Err(); err != nil {
		return Challenge{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	mfaType := MfaSms
	if p.issued%2 == 1 {
		mfaType = MfaEmail
	}
	p.issued++
	return Challenge{
		OtpID: uuid.NewString(),
		Token: p.session,
		Type:  mfaType,
	}, nil
}

func (p *Paper) SubmitMfa(ctx context.Context, challenge Challenge, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if challenge.OtpID == "" || strings.TrimSpace(code) == "" {
		return errors.New("paper: 验证码无效")
	}
	p.remaining--
	if p.remaining > 0 {
		return MfaRequired("paper: 还需 %d 轮验证", p.remaining)
	}
	p.authenticated = true
	return nil
}

func (p *Paper) IsMarketOpen(ctx context.Context, symbol string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.marketOpen || p.closed[normalizeSymbol(symbol)] {
		return false, nil
	}
	if p.calendar != nil {
		return p.calendar.IsOpen(p.now()), nil
	}
	return true, nil
}

func (p *Paper) InstrumentQuote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.prices[normalizeSymbol(symbol)]
	if !ok {
		return Quote{}, fmt.Errorf("paper: %w: %s", ErrUnknownSymbol, symbol)
	}
	return Quote{LastPrice: price}, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, side order.Side, account, symbol string, quantity int64) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authenticated {
		return Fill{}, errors.New("paper: 未登录")
	}
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("paper: 下单数量必须大于0: %d", quantity)
	}
	price, ok := p.prices[normalizeSymbol(symbol)]
	if !ok {
		return Fill{}, fmt.Errorf("paper: %w: %s", ErrUnknownSymbol, symbol)
	}

	placed := PlacedOrder{
		ID:       uuid.NewString(),
		Side:     side,
		Account:  account,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		At:       p.now(),
	}
	p.orders = append(p.orders, placed)
	p.logger.Info("模拟券商成交",
		zap.String("order_id", placed.ID),
		zap.String("side", string(side)),
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.Float64("price", price),
	)
	return Fill{OrderID: placed.ID, Price: &price}, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
