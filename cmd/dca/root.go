package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/config"
	"github.com/azerpas/bourso-desktop/internal/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dca",
	Short: "Dollar-cost averaging scheduler for a brokerage account",
	Long: `dca keeps a list of scheduled buy/sell jobs, runs the ones that are due
against the broker and records every passed order.

Without a subcommand it starts the interactive console: log in, answer
MFA challenges and run pending jobs one by one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return newConsole(a).run(ctx, nil)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")

	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(serveCmd)
}

// withApp 加载配置、日志与依赖后执行 fn，并在返回前释放资源。
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := log.NewLogger(cfg.Logging, cfg.App.Environment)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("初始化失败", zap.Error(err))
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}
