package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"airdate/internal/apiclient"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var at string
	var in time.Duration
	var title string
	var description string
	var tags []string
	var visibility string

	cmd := &cobra.Command{
		Use:   "schedule <media-ref>",
		Short: "Schedule a media file for deferred publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runAt, err := resolveRunAt(at, in)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(cmdCtx context.Context, client *apiclient.Client) error {
				job, err := client.Schedule(cmdCtx, apiclient.ScheduleParams{
					MediaRef:    args[0],
					Title:       title,
					Description: description,
					Tags:        tags,
					Visibility:  visibility,
					RunAt:       runAt.Format(time.RFC3339),
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scheduled job %s\n", job.ID)
				fmt.Fprintf(out, "  Title:      %s\n", job.Title)
				fmt.Fprintf(out, "  Visibility: %s\n", job.Visibility)
				fmt.Fprintf(out, "  Publish at: %s\n", job.RunAt)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Publish time as RFC3339 (e.g. 2026-09-01T18:00:00Z)")
	cmd.Flags().DurationVar(&in, "in", 0, "Publish after a delay from now (e.g. 90m, 24h)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Video title (derived from the file name when omitted)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Video description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Video tag (repeatable)")
	cmd.Flags().StringVar(&visibility, "visibility", "", "Visibility after publish: private, unlisted, or public")

	return cmd
}

func resolveRunAt(at string, in time.Duration) (time.Time, error) {
	at = strings.TrimSpace(at)
	switch {
	case at != "" && in != 0:
		return time.Time{}, fmt.Errorf("--at and --in are mutually exclusive")
	case at != "":
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse --at value %q: %w", at, err)
		}
		return parsed, nil
	case in > 0:
		return time.Now().Add(in), nil
	case in < 0:
		return time.Time{}, fmt.Errorf("--in must be a positive duration")
	default:
		return time.Time{}, fmt.Errorf("a publish time is required (use --at or --in)")
	}
}
