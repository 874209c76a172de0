package execution

import (
	"context"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/order"
)

// Trader 抽象执行器接口，方便切换真实或模拟下单。
type Trader interface {
	Execute(ctx context.Context, j *job.Job, b broker.Broker) (order.Passed, error)
	PlaceOrder(ctx context.Context, args order.Args, b broker.Broker) (order.Passed, error)
}

var _ Trader = (*Executor)(nil)
