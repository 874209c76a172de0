package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/auth"
	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/config"
	"github.com/azerpas/bourso-desktop/internal/credential"
	"github.com/azerpas/bourso-desktop/internal/exchange"
	"github.com/azerpas/bourso-desktop/internal/execution"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/markethours"
	"github.com/azerpas/bourso-desktop/internal/monitor"
	"github.com/azerpas/bourso-desktop/internal/notify"
	"github.com/azerpas/bourso-desktop/internal/order"
	"github.com/azerpas/bourso-desktop/internal/runner"
	"github.com/azerpas/bourso-desktop/internal/store"
)

const metricsNamespace = "bourso_dca"

// App 聚合核心依赖：任务存储、认证会话、执行器与运行日志。
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *store.SQLite
	registry *prometheus.Registry
	monitor  *monitor.Service
	session  *auth.Session
	executor *execution.Executor
	history  *order.History
	jobs     *job.Store
	creds    credential.Source
}

// New 根据配置组装全部依赖。调用方负责在结束时调用 Close。
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: 配置不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.App.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("app: 创建数据目录失败: %w", err)
	}

	db, err := store.NewSQLite(cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.NewMetrics(metricsNamespace, registry)

	mon, err := monitor.NewService(db, metrics, logger.Named("monitor"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	factory, err := newBrokerFactory(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	session, err := auth.NewSession(factory, logger.Named("auth"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg.Notify, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	history := order.NewHistory(filepath.Join(cfg.App.DataDir, order.HistoryFileName))
	executor := execution.NewExecutor(history, notifier, execution.Options{
		CallTimeout: cfg.Broker.CallTimeout,
	}, logger.Named("execution"))

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		monitor:  mon,
		session:  session,
		executor: executor,
		history:  history,
		jobs:     job.NewStore(filepath.Join(cfg.App.DataDir, job.FileName), logger.Named("job")),
		creds:    newCredentialSource(cfg),
	}, nil
}

func newBrokerFactory(cfg *config.Config, logger *zap.Logger) (broker.Factory, error) {
	var calendar broker.MarketCalendar
	if cfg.MarketHours.Enabled {
		c, err := markethours.New(cfg.MarketHours)
		if err != nil {
			return nil, err
		}
		calendar = c
	}

	switch strings.ToLower(cfg.Broker.Mode) {
	case config.BrokerModePaper:
		return broker.PaperFactory(cfg.Paper, calendar, logger.Named("paper")), nil
	case config.BrokerModeCCXT:
		return exchange.Factory(cfg.Broker, calendar, logger.Named("exchange")), nil
	default:
		return nil, fmt.Errorf("app: 不支持的券商模式 %q", cfg.Broker.Mode)
	}
}

func newNotifier(cfg config.NotifyConfig, logger *zap.Logger) (notify.Notifier, error) {
	var notifiers notify.Multi
	if cfg.Log {
		notifiers = append(notifiers, notify.NewLog(logger.Named("notify")))
	}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger.Named("telegram"))
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}
	if len(notifiers) == 0 {
		return notify.Nop{}, nil
	}
	return notifiers, nil
}

func newCredentialSource(cfg *config.Config) credential.Source {
	if strings.ToLower(cfg.Credentials.Backend) == config.CredentialBackendKeyring {
		return credential.NewKeyring(cfg.Credentials.KeyringService)
	}
	return credential.NewFile(filepath.Join(cfg.App.DataDir, credential.FileName))
}

// Jobs 返回任务存储。
func (a *App) Jobs() *job.Store { return a.jobs }

// History 返回成交历史。
func (a *App) History() *order.History { return a.history }

// Credentials 返回凭证来源。
func (a *App) Credentials() credential.Source { return a.creds }

// Session 返回认证会话。
func (a *App) Session() *auth.Session { return a.session }

// Monitor 返回运行日志服务。
func (a *App) Monitor() *monitor.Service { return a.monitor }

// Unattended 创建无人值守运行器。
func (a *App) Unattended() *runner.Unattended {
	return runner.NewUnattended(a.creds, a.jobs, a.executor, a.session, a.logger.Named("runner"),
		runner.WithRecorder(a.monitor),
	)
}

// Interactive 创建交互式运行器。
func (a *App) Interactive() *runner.Interactive {
	return runner.NewInteractive(a.jobs, a.executor, a.session, a.monitor, a.logger.Named("runner"))
}

// Login 登录并记录认证状态变化。
func (a *App) Login(ctx context.Context, clientID, password string) error {
	err := a.session.Login(ctx, clientID, password)
	a.recordAuth(ctx, err)
	return err
}

// SubmitMfa 提交验证码并记录认证状态变化。
func (a *App) SubmitMfa(ctx context.Context, challengeID, code string) error {
	err := a.session.SubmitMfa(ctx, challengeID, code)
	a.recordAuth(ctx, err)
	return err
}

// PlaceOrder 在已登录会话上手动下单。
func (a *App) PlaceOrder(ctx context.Context, args order.Args) (order.Passed, error) {
	var passed order.Passed
	err := a.session.Do(ctx, func(b broker.Broker) error {
		var execErr error
		passed, execErr = a.executor.PlaceOrder(ctx, args, b)
		return execErr
	})
	if passed.ID != "" {
		payload := monitor.OrderPayload{
			OrderID:  passed.ID,
			Side:     string(args.Side),
			Symbol:   args.Symbol,
			Price:    passed.Price,
			Quantity: passed.Quantity,
		}
		a.monitor.RecordOrder(ctx, payload)
	}
	if err != nil {
		a.monitor.RecordError(ctx, "手动下单失败", err, map[string]interface{}{"symbol": args.Symbol})
	}
	return passed, err
}

func (a *App) recordAuth(ctx context.Context, err error) {
	payload := monitor.AuthPayload{State: a.session.State().String()}
	if mfaErr, ok := auth.AsMfaRequired(err); ok {
		payload.MfaType = string(mfaErr.Challenge.Type)
	} else if err != nil {
		payload.Error = err.Error()
	}
	a.monitor.RecordAuth(ctx, payload)
}

// Close 释放数据库连接。
func (a *App) Close() error {
	return a.db.Close()
}
