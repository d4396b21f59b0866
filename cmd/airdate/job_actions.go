package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"airdate/internal/apiclient"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending publish job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				job, err := client.Cancel(cmdCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job %s (%s)\n", job.ID, job.Title)
				return nil
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <job-id>",
		Short: "Publish a pending job immediately, ignoring its scheduled time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				job, err := client.PublishNow(cmdCtx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case job.VideoID != "":
					fmt.Fprintf(out, "Published %s: https://youtu.be/%s\n", job.Title, job.VideoID)
				case job.Error != "":
					fmt.Fprintf(out, "Publish failed for %s: %s\n", job.Title, job.Error)
				default:
					fmt.Fprintf(out, "Job %s finished in state %s\n", job.ID, job.Status)
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a finished publish job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				if err := client.Delete(cmdCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
				return nil
			})
		},
	}
}
