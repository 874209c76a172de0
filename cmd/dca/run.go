package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Log in and execute a single job now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			j, err := a.Jobs().Get(args[0])
			if err != nil {
				return err
			}
			if err := newConsole(a).login(ctx); err != nil {
				return err
			}
			updated, err := a.Interactive().RunOne(ctx, j)
			if err != nil {
				return err
			}
			fmt.Printf("Job %s executed, next run after %s\n", updated.ID, updated.LastRunTime().Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}
