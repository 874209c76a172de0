package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/credential"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage saved credentials",
}

var credentialsSetFlags struct {
	clientID   string
	noPassword bool
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save the client id and, optionally, the password used by unattended runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p := newPrompter()
			creds := credential.Credentials{ClientID: credentialsSetFlags.clientID}
			var err error
			if creds.ClientID == "" {
				if creds.ClientID, err = p.line("Client ID: "); err != nil {
					return err
				}
			}
			if !credentialsSetFlags.noPassword {
				if creds.Password, err = p.secret("Password: "); err != nil {
					return err
				}
			}
			if err := a.Credentials().Save(ctx, creds); err != nil {
				return err
			}
			fmt.Println("Credentials saved.")
			return nil
		})
	},
}

func init() {
	credentialsSetCmd.Flags().StringVar(&credentialsSetFlags.clientID, "client-id", "", "client id")
	credentialsSetCmd.Flags().BoolVar(&credentialsSetFlags.noPassword, "no-password", false, "only save the client id and clear any saved password")

	credentialsCmd.AddCommand(credentialsSetCmd)
}
