package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"airdate/internal/api"
	"airdate/internal/apiclient"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List publish jobs for the current owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				jobs, err := client.Jobs(cmdCtx)
				if daemonDown(err) {
					// Read-only, so the store can answer when the
					// daemon is not running.
					jobs, err = ctx.listJobsDirect(cmdCtx)
				}
				if err != nil {
					return err
				}
				if statusFilter != "" {
					jobs = filterJobs(jobs, statusFilter)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Publish At", "Visibility", "Video"},
					buildJobRows(jobs),
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by job status")
	return cmd
}

func filterJobs(jobs []api.JobView, status string) []api.JobView {
	filtered := make([]api.JobView, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

func buildJobRows(jobs []api.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.ID,
			truncate(job.Title, 40),
			job.Status,
			job.RunAt,
			job.Visibility,
			job.VideoID,
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
