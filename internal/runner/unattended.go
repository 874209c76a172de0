package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/broker"
	"github.com/azerpas/bourso-desktop/internal/credential"
	"github.com/azerpas/bourso-desktop/internal/execution"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/monitor"
)

// JobFailure 记录单个任务的失败原因。
type JobFailure struct {
	JobID string
	Err   error
}

// Report 汇总一次批量执行。
type Report struct {
	BatchID string
	// Pending 为缺少密码时仍处于到期状态、等待用户处理的任务。
	Pending  []job.Job
	Executed []string
	Failures []JobFailure
}

// Err 合并所有任务级错误，没有失败时返回 nil。
func (r Report) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.JobID, f.Err))
	}
	return err
}

// Unattended 在无人值守的情况下执行全部到期任务。
type Unattended struct {
	creds    credential.Source
	jobs     JobStore
	trader   execution.Trader
	session  Session
	recorder Recorder
	now      func() time.Time
	logger   *zap.Logger
}

// UnattendedOption 调整无人值守运行器。
type UnattendedOption func(*Unattended)

// WithRecorder 设置事件记录器。
func WithRecorder(r Recorder) UnattendedOption {
	return func(u *Unattended) {
		if r != nil {
			u.recorder = r
		}
	}
}

// WithClock 设置时钟。
func WithClock(now func() time.Time) UnattendedOption {
	return func(u *Unattended) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUnattended 创建无人值守运行器。
func NewUnattended(creds credential.Source, jobs JobStore, trader execution.Trader, session Session, logger *zap.Logger, opts ...UnattendedOption) *Unattended {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &Unattended{
		creds:    creds,
		jobs:     jobs,
		trader:   trader,
		session:  session,
		recorder: nopRecorder{},
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RunBatch 读取任务与凭证并依次执行到期任务。
//
// 没有保存密码时不会登录：返回 ErrPasswordMissing，Report.Pending 为当前到期的任务，
// 任务文件按原样写回。单个任务失败只记录日志并继续下一个；全部执行完后统一保存一次任务列表。
// 存储、凭证与登录失败直接返回给调用方。
func (u *Unattended) RunBatch(ctx context.Context) (Report, error) {
	report := Report{BatchID: uuid.NewString()}
	started := time.Now()
	now := u.now()
	logger := u.logger.With(zap.String("batch_id", report.BatchID))

	jobs, err := u.jobs.Load()
	if err != nil {
		return report, u.fail(ctx, report, started, fmt.Errorf("runner: 读取任务失败: %w", err))
	}

	creds, err := u.creds.Load(ctx)
	if err != nil {
		return report, u.fail(ctx, report, started, fmt.Errorf("runner: 读取凭证失败: %w", err))
	}

	if !creds.HasPassword() {
		report.Pending = job.Due(jobs, now)
		if err := u.jobs.Save(jobs); err != nil {
			return report, u.fail(ctx, report, started, fmt.Errorf("runner: 保存任务失败: %w", err))
		}
		logger.Warn("未保存密码，等待用户处理到期任务", zap.Int("pending", len(report.Pending)))
		u.recorder.RecordBatch(ctx, monitor.BatchPayload{
			BatchID:  report.BatchID,
			Outcome:  monitor.BatchPasswordMissing,
			Due:      len(report.Pending),
			Pending:  jobIDs(report.Pending),
			Duration: time.Since(started).String(),
		})
		return report, ErrPasswordMissing
	}
	if !creds.HasClientID() {
		return report, u.fail(ctx, report, started, ErrClientIDMissing)
	}

	if err := u.session.LoginUnattended(ctx, creds.ClientID, creds.Password); err != nil {
		return report, u.fail(ctx, report, started, fmt.Errorf("runner: 无人值守登录失败: %w", err))
	}

	due := 0
	for i := range jobs {
		if !jobs[i].IsDue(now) {
			continue
		}
		due++
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Failures = append(report.Failures, JobFailure{JobID: jobs[i].ID, Err: ctxErr})
			continue
		}

		jobStart := time.Now()
		payload := jobPayload(report.BatchID, jobs[i])
		err := u.session.Do(ctx, func(b broker.Broker) error {
			passed, execErr := u.trader.Execute(ctx, &jobs[i], b)
			payload.OrderID = passed.ID
			payload.Price = passed.Price
			if passed.Quantity > 0 {
				payload.Quantity = passed.Quantity
			}
			return execErr
		})
		if err != nil {
			payload.Error = err.Error()
			report.Failures = append(report.Failures, JobFailure{JobID: jobs[i].ID, Err: err})
			logger.Error("任务执行失败", zap.String("job_id", jobs[i].ID), zap.Error(err))
		} else {
			report.Executed = append(report.Executed, jobs[i].ID)
			logger.Info("任务执行成功", zap.String("job_id", jobs[i].ID), zap.String("order_id", payload.OrderID))
		}
		u.recorder.RecordJob(ctx, payload, time.Since(jobStart))
	}

	if err := u.jobs.Save(jobs); err != nil {
		return report, u.fail(ctx, report, started, fmt.Errorf("runner: 保存任务失败: %w", err))
	}

	logger.Info("批量执行完成",
		zap.Int("due", due),
		zap.Int("executed", len(report.Executed)),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("elapsed", time.Since(started)),
	)
	u.recorder.RecordBatch(ctx, monitor.BatchPayload{
		BatchID:  report.BatchID,
		Outcome:  monitor.BatchCompleted,
		Due:      due,
		Executed: report.Executed,
		Failed:   failureIDs(report.Failures),
		Duration: time.Since(started).String(),
	})
	return report, nil
}

func (u *Unattended) fail(ctx context.Context, report Report, started time.Time, err error) error {
	u.logger.Error("批量执行失败", zap.String("batch_id", report.BatchID), zap.Error(err))
	u.recorder.RecordBatch(ctx, monitor.BatchPayload{
		BatchID:  report.BatchID,
		Outcome:  monitor.BatchFailed,
		Executed: report.Executed,
		Failed:   failureIDs(report.Failures),
		Error:    err.Error(),
		Duration: time.Since(started).String(),
	})
	return err
}

func jobIDs(jobs []job.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func failureIDs(failures []JobFailure) []string {
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.JobID)
	}
	return ids
}
