package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/config"
	"github.com/azerpas/bourso-desktop/internal/order"
)

const (
	ExchangeBinanceUSDM = "binanceusdm"
	ExchangeHyperliquid = "hyperliquid"

	quoteTimeframe = "1m"
)

type tradeClient interface {
	FetchOHLCV(symbol string, options ...ccxt.FetchOHLCVOptions) ([]ccxt.OHLCV, error)
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
}

// connection 是一个 ccxt 客户端及其市场元数据加载函数。
type connection struct {
	client      tradeClient
	loadMarkets func() error
}

type dialer func(clientID, secret string) connection

// Client 通过 ccxt 实现券商能力，并对行情调用做重试。
// ccxt 交易所没有验证码流程，RequestMfa 与 SubmitMfa 始终返回 broker.ErrMfaUnsupported。
type Client struct {
	cfg      config.BrokerConfig
	calendar broker.MarketCalendar
	logger   *zap.Logger
	dial     dialer
	now      func() time.Time

	conn          *connection
	marketsLoaded bool
	authenticated bool
}

// NewClient 构造 ccxt 券商客户端。calendar 为空时视为全天候交易。
func NewClient(cfg config.BrokerConfig, calendar broker.MarketCalendar, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dial dialer
	switch strings.ToLower(cfg.Exchange) {
	case ExchangeBinanceUSDM:
		dial = binanceDialer(cfg.UseSandbox)
	case ExchangeHyperliquid:
		dial = hyperliquidDialer(cfg.UseSandbox)
	default:
		return nil, fmt.Errorf("exchange: 不支持的交易所 %q", cfg.Exchange)
	}

	return &Client{
		cfg:      cfg,
		calendar: calendar,
		logger:   logger.With(zap.String("exchange", cfg.Exchange)),
		dial:     dial,
		now:      time.Now,
	}, nil
}

// Factory 返回每次创建全新 ccxt 客户端的工厂。
func Factory(cfg config.BrokerConfig, calendar broker.MarketCalendar, logger *zap.Logger) broker.Factory {
	return func() (broker.Broker, error) {
		return NewClient(cfg, calendar, logger)
	}
}

func binanceDialer(sandbox bool) dialer {
	return func(apiKey, secret string) connection {
		userConfig := map[string]interface{}{
			"enableRateLimit": true,
			"options": map[string]interface{}{
				"adjustForTimeDifference": true,
				"defaultType":             "future",
			},
		}
		if apiKey != "" {
			userConfig["apiKey"] = apiKey
		}
		if secret != "" {
			userConfig["secret"] = secret
		}

		ex := ccxt.NewBinanceusdm(userConfig)
		if sandbox {
			ex.SetSandboxMode(true)
		}
		return connection{
			client: ex,
			loadMarkets: func() error {
				_, err := ex.LoadMarkets()
				return err
			},
		}
	}
}

func hyperliquidDialer(sandbox bool) dialer {
	return func(wallet, privateKey string) connection {
		userConfig := map[string]interface{}{
			"enableRateLimit": true,
		}
		if wallet != "" {
			userConfig["walletAddress"] = wallet
		}
		if privateKey != "" {
			userConfig["privateKey"] = privateKey
		}

		ex := ccxt.NewHyperliquid(userConfig)
		if sandbox {
			ex.SetSandboxMode(true)
		}
		return connection{
			client: ex,
			loadMarkets: func() error {
				_, err := ex.LoadMarkets()
				return err
			},
		}
	}
}

func (c *Client) HasSession() bool {
	return c.conn != nil && c.marketsLoaded
}

// InitSession 创建匿名连接并加载市场元数据。
func (c *Client) InitSession(ctx context.Context) error {
	conn := c.dial("", "")
	if err := c.callWithRetry(ctx, "load_markets", conn.loadMarkets); err != nil {
		return fmt.Errorf("exchange: 加载市场元数据失败: %w", err)
	}
	c.conn = &conn
	c.marketsLoaded = true
	c.authenticated = false
	c.logger.Info("已完成市场元数据加载")
	return nil
}

// Login 以 clientID/password 作为 API 凭证重建连接，并通过查询余额校验凭证。
func (c *Client) Login(ctx context.Context, clientID, password string) error {
	if strings.TrimSpace(clientID) == "" || password == "" {
		return errors.New("exchange: API 凭证为空")
	}

	conn := c.dial(clientID, password)
	if !c.marketsLoaded {
		if err := c.callWithRetry(ctx, "load_markets", conn.loadMarkets); err != nil {
			return fmt.Errorf("exchange: 加载市场元数据失败: %w", err)
		}
		c.marketsLoaded = true
	}

	err := c.callWithRetry(ctx, "fetch_balance", func() error {
		_, err := conn.client.FetchBalance()
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return err
		}
		return fmt.Errorf("exchange: 登录校验失败: %w", err)
	}

	c.conn = &conn
	c.authenticated = true
	c.logger.Info("交易所凭证校验通过")
	return nil
}

func (c *Client) RequestMfa(context.Context) (broker.Challenge, error) {
	return broker.Challenge{}, fmt.Errorf("exchange: %w", broker.ErrMfaUnsupported)
}

func (c *Client) SubmitMfa(context.Context, broker.Challenge, string) error {
	return fmt.Errorf("exchange: %w", broker.ErrMfaUnsupported)
}

// IsMarketOpen 按交易日历判断，未配置日历时始终开盘。
func (c *Client) IsMarketOpen(ctx context.Context, symbol string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.calendar == nil {
		return true, nil
	}
	return c.calendar.IsOpen(c.now()), nil
}

// InstrumentQuote 以最近一根 1 分钟 K 线的收盘价作为最新价。
func (c *Client) InstrumentQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	if c.conn == nil {
		return broker.Quote{}, errors.New("exchange: 会话未初始化")
	}

	var raw []ccxt.OHLCV
	err := c.callWithRetry(ctx, "fetch_ohlcv_"+quoteTimeframe, func() error {
		result, err := c.conn.client.FetchOHLCV(
			symbol,
			ccxt.WithFetchOHLCVTimeframe(quoteTimeframe),
			ccxt.WithFetchOHLCVLimit(1),
		)
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return broker.Quote{}, err
	}
	if len(raw) == 0 {
		return broker.Quote{}, fmt.Errorf("exchange: %s 无行情数据", symbol)
	}
	return broker.Quote{LastPrice: raw[len(raw)-1].Close}, nil
}

// PlaceOrder 提交市价单。下单非幂等，不重试。
func (c *Client) PlaceOrder(ctx context.Context, side order.Side, account, symbol string, quantity int64) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, err
	}
	if c.conn == nil || !c.authenticated {
		return broker.Fill{}, errors.New("exchange: 未登录")
	}

	start := time.Now()
	result, err := c.conn.client.CreateMarketOrder(symbol, string(side), float64(quantity))
	if err != nil {
		normalized, _ := classify(err)
		c.logger.Error("下单失败",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.Int64("quantity", quantity),
			zap.Duration("latency", time.Since(start)),
			zap.Error(normalized),
		)
		return broker.Fill{}, normalized
	}

	fill := broker.Fill{Price: fillPrice(result)}
	if result.Id != nil {
		fill.OrderID = *result.Id
	}
	c.logger.Info("下单成功",
		zap.String("account", account),
		zap.String("symbol", symbol),
		zap.String("order_id", fill.OrderID),
		zap.Int64("quantity", quantity),
		zap.Duration("latency", time.Since(start)),
	)
	return fill, nil
}

// fillPrice 优先取成交均价，其次取委托价。
func fillPrice(o ccxt.Order) *float64 {
	if o.Average != nil && *o.Average > 0 {
		v := *o.Average
		return &v
	}
	if o.Price != nil && *o.Price > 0 {
		v := *o.Price
		return &v
	}
	return nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("交易所调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := classify(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("交易所维护中",
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= maxAttempts {
			c.logger.Error("交易所调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("交易所调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
