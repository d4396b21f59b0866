package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"airdate/internal/api"
	"airdate/internal/apiclient"
	"airdate/internal/preflight"
	"airdate/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system checks, daemon state, and queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}

			var status api.DaemonStatus
			clientErr := ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				var err error
				status, err = client.Status(cmdCtx)
				return err
			})
			if clientErr != nil {
				if !daemonDown(clientErr) {
					return clientErr
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running (start it with `airdate run`)", colorize))
				return nil
			}

			daemonKind := statusOK
			daemonDetail := fmt.Sprintf("Running (pid %d)", status.PID)
			if !status.Running {
				daemonKind = statusWarn
				daemonDetail = "Scheduler stopped"
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", daemonKind, daemonDetail, colorize))

			credKind := statusWarn
			credDetail := "Not configured (import a token with `airdate token import`)"
			if status.Credentials.Configured {
				credKind = statusOK
				credDetail = "Configured"
				if status.Credentials.Expiry != "" {
					credDetail = fmt.Sprintf("Configured (access token expires %s)", status.Credentials.Expiry)
				}
			}
			fmt.Fprintln(stdout, renderStatusLine("Credentials", credKind, credDetail, colorize))
			if status.LastError != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatsRows(status.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, 1)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

// buildQueueStatsRows orders the known lifecycle states first and appends
// anything unexpected alphabetically so nothing is silently dropped.
func buildQueueStatsRows(stats map[string]int) [][]string {
	ordered := []string{
		string(queue.StatusPending),
		string(queue.StatusRunning),
		string(queue.StatusUploaded),
		string(queue.StatusFailed),
		string(queue.StatusCancelled),
	}
	seen := make(map[string]bool, len(ordered))
	rows := make([][]string, 0, len(stats))
	for _, status := range ordered {
		seen[status] = true
		if count, ok := stats[status]; ok {
			rows = append(rows, []string{status, fmt.Sprintf("%d", count)})
		}
	}

	var extras []string
	for status := range stats {
		if !seen[status] {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	return rows
}
