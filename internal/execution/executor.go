package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/notify"
	"github.com/azerpas/bourso-desktop/internal/order"
)

// Executor 把定投任务转化为券商订单，并记录成交历史。
type Executor struct {
	history     historyAppender
	notifier    notify.Notifier
	callTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewExecutor 创建执行器。notifier 为空时不发送通知。
func NewExecutor(history historyAppender, notifier notify.Notifier, opts Options, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Executor{
		history:     history,
		notifier:    notifier,
		callTimeout: opts.CallTimeout,
		now:         now,
		logger:      logger,
	}
}

// Execute 执行单个任务。只有成功时才推进 j.LastRun；
// 开盘检查、数量换算或下单失败都不会修改任务，任务在下一次检查时仍然到期。
func (e *Executor) Execute(ctx context.Context, j *job.Job, b broker.Broker) (order.Passed, error) {
	if j == nil {
		return order.Passed{}, errors.New("execution: job 不能为空")
	}

	switch j.Command.Kind {
	case job.CommandOrder:
		if j.Command.Order == nil {
			return order.Passed{}, fmt.Errorf("execution: 任务 %s 缺少下单参数", j.ID)
		}
	case job.CommandTransfer:
		return order.Passed{}, fmt.Errorf("%w: transfer (%s)", ErrNotImplemented, j.ID)
	default:
		return order.Passed{}, fmt.Errorf("%w: %q (%s)", ErrNotImplemented, j.Command.Kind, j.ID)
	}

	logger := e.logger.With(zap.String("job_id", j.ID))
	passed, quantity, err := e.place(ctx, *j.Command.Order, b, logger)
	if err != nil {
		return order.Passed{}, err
	}

	recordErr := e.record(passed)
	// 订单已成交，历史写入失败时同样推进执行时间。
	j.MarkRun(e.now())
	e.notify(ctx, quantity, passed.Args.Symbol, logger)

	if recordErr != nil {
		logger.Error("订单已成交但写入历史失败", zap.String("order_id", passed.ID), zap.Error(recordErr))
		return passed, recordErr
	}
	return passed, nil
}

// PlaceOrder 不经过任务直接下单，用于手动下单。
func (e *Executor) PlaceOrder(ctx context.Context, args order.Args, b broker.Broker) (order.Passed, error) {
	if err := args.Validate(); err != nil {
		return order.Passed{}, err
	}

	logger := e.logger.With(zap.String("symbol", args.Symbol))
	passed, quantity, err := e.place(ctx, args, b, logger)
	if err != nil {
		return order.Passed{}, err
	}

	recordErr := e.record(passed)
	e.notify(ctx, quantity, args.Symbol, logger)
	if recordErr != nil {
		return passed, recordErr
	}
	return passed, nil
}

func (e *Executor) place(ctx context.Context, args order.Args, b broker.Broker, logger *zap.Logger) (order.Passed, int64, error) {
	if b == nil {
		return order.Passed{}, 0, errors.New("execution: broker 不能为空")
	}

	var open bool
	err := e.call(ctx, func(callCtx context.Context) error {
		var callErr error
		open, callErr = b.IsMarketOpen(callCtx, args.Symbol)
		return callErr
	})
	if err != nil {
		return order.Passed{}, 0, fmt.Errorf("execution: 查询 %s 开盘状态失败: %w", args.Symbol, err)
	}
	if !open {
		logger.Info("市场未开盘，跳过", zap.String("symbol", args.Symbol))
		return order.Passed{}, 0, fmt.Errorf("%w: %s", ErrMarketClosed, args.Symbol)
	}

	quantity, err := order.ResolveQuantity(ctx, args, func(ctx context.Context, symbol string) (float64, error) {
		var quote broker.Quote
		callErr := e.call(ctx, func(callCtx context.Context) error {
			var err error
			quote, err = b.InstrumentQuote(callCtx, symbol)
			return err
		})
		return quote.LastPrice, callErr
	})
	if err != nil {
		return order.Passed{}, 0, err
	}
	if quantity <= 0 {
		return order.Passed{}, 0, fmt.Errorf("%w: %s 金额不足以买入一股", order.ErrUnresolvedQuantity, args.Symbol)
	}

	var fill broker.Fill
	err = e.call(ctx, func(callCtx context.Context) error {
		var callErr error
		fill, callErr = b.PlaceOrder(callCtx, args.Side, args.Account, args.Symbol, quantity)
		return callErr
	})
	if err != nil {
		return order.Passed{}, 0, fmt.Errorf("%w: %s: %v", ErrOrderPlacement, args.Symbol, err)
	}
	if fill.Price == nil {
		logger.Error("券商回执缺少成交价", zap.String("order_id", fill.OrderID))
		return order.Passed{}, 0, fmt.Errorf("%w: order %s", ErrMissingFillPrice, fill.OrderID)
	}

	logger.Info("订单已成交",
		zap.String("order_id", fill.OrderID),
		zap.String("side", string(args.Side)),
		zap.String("symbol", args.Symbol),
		zap.Int64("quantity", quantity),
		zap.Float64("price", *fill.Price),
	)

	return order.Passed{ID: fill.OrderID, Price: *fill.Price, Args: args, Quantity: quantity}, quantity, nil
}

func (e *Executor) record(passed order.Passed) error {
	if e.history == nil {
		return nil
	}
	if err := e.history.Append(passed); err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryNotRecorded, err)
	}
	return nil
}

func (e *Executor) notify(ctx context.Context, quantity int64, symbol string, logger *zap.Logger) {
	if err := e.notifier.Notify(ctx, notify.OrderPassed(quantity, symbol)); err != nil {
		logger.Warn("发送成交通知失败", zap.Error(err))
	}
}

// call 为单次券商调用附加超时。
func (e *Executor) call(ctx context.Context, fn func(context.Context) error) error {
	if e.callTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return fn(callCtx)
}
