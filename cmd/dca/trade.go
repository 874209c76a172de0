package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/runner"
)

// unattendedExitCode 是无人值守批处理结束后的进程退出码，
// 只有缺少密码时不退出而是转入交互式控制台。
const unattendedExitCode = -1

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Trading commands",
}

var tradeOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Run every due job now without interaction (meant for a periodic scheduler)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, runTradeOrders)
	},
}

func init() {
	tradeCmd.AddCommand(tradeOrdersCmd)
}

func runTradeOrders(ctx context.Context, a *app.App) error {
	report, err := a.Unattended().RunBatch(ctx)
	if errors.Is(err, runner.ErrPasswordMissing) {
		fmt.Printf("No saved password, %d job(s) pending.\n", len(report.Pending))
		return newConsole(a).run(ctx, report.Pending)
	}
	if err == nil {
		err = report.Err()
		fmt.Printf("Batch %s: %d executed, %d failed.\n", report.BatchID, len(report.Executed), len(report.Failures))
	}
	return &exitError{code: unattendedExitCode, err: err}
}
