package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airdate/internal/apiclient"
	"airdate/internal/creds"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the shared upload credential",
	}

	tokenCmd.AddCommand(newTokenImportCommand(ctx))
	tokenCmd.AddCommand(newTokenStatusCommand(ctx))

	return tokenCmd
}

func newTokenImportCommand(ctx *commandContext) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "import <token-file>",
		Short: "Import an OAuth token file produced by the Google authorization flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read token file: %w", err)
			}

			if local {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if err := creds.NewManager(cfg).Import(data); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token imported")
				return nil
			}

			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				if err := client.ImportToken(cmdCtx, data); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token imported into the running daemon")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Write the token file directly instead of going through the daemon")
	return cmd
}

func newTokenStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an upload credential is configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := creds.NewManager(cfg).Describe()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configured: %s\n", yesNo(status.Configured))
			if !status.Expiry.IsZero() {
				fmt.Fprintf(out, "Access token expires: %s\n", status.Expiry)
			}
			return nil
		},
	}
}
