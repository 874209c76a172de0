package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azerpas/bourso-desktop/internal/runner"
)

// Serve 常驻运行：按 scheduler.cron 周期执行无人值守批处理，monitor.port 大于 0 时同时提供监控接口。
// ctx 取消后等待正在执行的批处理结束再返回。
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("定投调度器已启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("broker", a.cfg.Broker.Mode),
		zap.String("cron", a.cfg.Scheduler.Cron),
	)

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Monitor.Port > 0 {
		g.Go(func() error {
			return a.serveMonitor(ctx, a.cfg.Monitor.Port)
		})
	}
	g.Go(func() error {
		return a.runScheduler(ctx)
	})
	return g.Wait()
}

func (a *App) runScheduler(ctx context.Context) error {
	unattended := a.Unattended()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{a.logger.Named("cron").Sugar()})))

	tick := func() {
		report, err := unattended.RunBatch(ctx)
		switch {
		case errors.Is(err, runner.ErrPasswordMissing):
			a.logger.Warn("未保存密码，到期任务等待交互处理", zap.Int("pending", len(report.Pending)))
		case err != nil:
			a.logger.Error("批量执行失败", zap.Error(err))
		case report.Err() != nil:
			a.logger.Warn("部分任务执行失败", zap.Error(report.Err()))
		}
	}

	if _, err := c.AddFunc(a.cfg.Scheduler.Cron, tick); err != nil {
		return fmt.Errorf("app: 解析 scheduler.cron 失败: %w", err)
	}

	if a.cfg.Scheduler.RunOnStart {
		tick()
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("定投调度器已停止")
	return nil
}

// cronLogger 把 cron 的日志接口转接到 zap。
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
