package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trawler/internal/api"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "run <task> [task...]",
		Short: "Submit tasks to the daemon for execution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.newClient()
			if err != nil {
				return err
			}

			submitted, err := apiClient.Submit(cmd.Context(), args, noCache)
			for _, exec := range submitted {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", exec.ID, exec.Task)
			}
			if err != nil {
				return err
			}

			if !follow {
				return nil
			}
			for _, exec := range submitted {
				err := apiClient.FollowLog(cmd.Context(), exec.ID, func(line api.LogLine) error {
					fmt.Fprintln(cmd.OutOrStdout(), formatLogLine(line))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream execution logs until completion")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the search result cache for this run")
	return cmd
}

func formatLogLine(line api.LogLine) string {
	ts := line.Timestamp.Format("15:04:05")
	if line.Component != "" {
		return fmt.Sprintf("%s %-5s %s: %s", ts, line.Level, line.Component, line.Message)
	}
	return fmt.Sprintf("%s %-5s %s", ts, line.Level, line.Message)
}
