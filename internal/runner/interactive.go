package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/execution"
	"github.com/azerpas/bourso-desktop/internal/job"
)

// Interactive 使用已登录的会话执行用户指定的单个任务。
type Interactive struct {
	jobs     JobStore
	trader   execution.Trader
	session  Session
	recorder Recorder
	logger   *zap.Logger
}

// NewInteractive 创建交互式运行器。recorder 可为空。
func NewInteractive(jobs JobStore, trader execution.Trader, session Session, recorder Recorder, logger *zap.Logger) *Interactive {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Interactive{
		jobs:     jobs,
		trader:   trader,
		session:  session,
		recorder: recorder,
		logger:   logger,
	}
}

// RunOne 执行 j，成功后把新的上次执行时间写回任务存储并返回更新后的任务。
// 失败时原样返回错误，不做批处理也不继续。
func (r *Interactive) RunOne(ctx context.Context, j job.Job) (job.Job, error) {
	start := time.Now()
	payload := jobPayload("", j)

	err := r.session.Do(ctx, func(b broker.Broker) error {
		passed, execErr := r.trader.Execute(ctx, &j, b)
		payload.OrderID = passed.ID
		payload.Price = passed.Price
		if passed.Quantity > 0 {
			payload.Quantity = passed.Quantity
		}
		return execErr
	})
	if err != nil {
		payload.Error = err.Error()
	}
	r.recorder.RecordJob(ctx, payload, time.Since(start))

	if err != nil && !errors.Is(err, execution.ErrHistoryNotRecorded) {
		return j, err
	}

	if upsertErr := r.jobs.Upsert(j); upsertErr != nil {
		return j, fmt.Errorf("runner: 保存任务失败: %w", upsertErr)
	}
	r.logger.Info("任务执行完成", zap.String("job_id", j.ID), zap.Int64("last_run", j.LastRun))
	return j, err
}
