package runner

import (
	"context"
	"time"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/monitor"
)

// JobStore 是运行器需要的任务存储能力。
type JobStore interface {
	Load() ([]job.Job, error)
	Save(jobs []job.Job) error
	Upsert(j job.Job) error
}

// Session 是运行器需要的认证会话能力，由 *auth.Session 实现。
// 批量执行只走无人值守登录，遇到验证码要求直接失败。
type Session interface {
	LoginUnattended(ctx context.Context, clientID, password string) error
	Do(ctx context.Context, fn func(broker.Broker) error) error
}

// Recorder 记录执行事件，由 *monitor.Service 实现。
type Recorder interface {
	RecordBatch(ctx context.Context, payload monitor.BatchPayload)
	RecordJob(ctx context.Context, payload monitor.JobPayload, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordBatch(context.Context, monitor.BatchPayload) {}

func (nopRecorder) RecordJob(context.Context, monitor.JobPayload, time.Duration) {}

func jobPayload(batchID string, j job.Job) monitor.JobPayload {
	payload := monitor.JobPayload{BatchID: batchID, JobID: j.ID}
	if o := j.Command.Order; o != nil {
		payload.Symbol = o.Symbol
		if o.Quantity != nil {
			payload.Quantity = *o.Quantity
		}
	}
	return payload
}
