package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"airdate/internal/apiclient"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Display the details of a publish job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				job, err := client.Job(cmdCtx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %s\n", job.ID)
				fmt.Fprintf(out, "  Owner:       %s\n", job.Owner)
				fmt.Fprintf(out, "  Media:       %s\n", job.MediaRef)
				fmt.Fprintf(out, "  Title:       %s\n", job.Title)
				if job.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", job.Description)
				}
				if len(job.Tags) > 0 {
					fmt.Fprintf(out, "  Tags:        %v\n", job.Tags)
				}
				fmt.Fprintf(out, "  Visibility:  %s\n", job.Visibility)
				fmt.Fprintf(out, "  Publish at:  %s\n", job.RunAt)
				fmt.Fprintf(out, "  Status:      %s\n", job.Status)
				fmt.Fprintf(out, "  Attempts:    %d\n", job.Attempts)
				if job.VideoID != "" {
					fmt.Fprintf(out, "  Video:       https://youtu.be/%s\n", job.VideoID)
				}
				if job.Error != "" {
					fmt.Fprintf(out, "  Error:       %s\n", job.Error)
				}
				if job.CreatedAt != "" {
					fmt.Fprintf(out, "  Created:     %s\n", job.CreatedAt)
				}
				if job.UpdatedAt != "" {
					fmt.Fprintf(out, "  Updated:     %s\n", job.UpdatedAt)
				}
				return nil
			})
		},
	}
}
