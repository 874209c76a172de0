package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run due jobs periodically in the foreground and expose the monitor endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}
