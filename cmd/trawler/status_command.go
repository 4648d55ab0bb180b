package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := apiClient.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:     %s\n", status.Version)
			fmt.Fprintf(out, "PID:         %d\n", status.PID)
			fmt.Fprintf(out, "Uptime:      %s\n", (time.Duration(status.UptimeSec) * time.Second).String())
			fmt.Fprintf(out, "Tasks:       %d\n", status.Tasks)
			fmt.Fprintf(out, "Executions:  %d\n", status.Executions)
			fmt.Fprintf(out, "Queue depth: %d\n", status.QueueDepth)
			return nil
		},
	}
}

func newTasksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the daemon's configured tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.newClient()
			if err != nil {
				return err
			}
			tasks, err := apiClient.Tasks(cmd.Context())
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tasks configured")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, info := range tasks {
				lookup := "no"
				if info.Lookup {
					lookup = "yes"
				}
				rows = append(rows, []string{
					info.Name,
					strings.Join(info.Inputs, ", "),
					lookup,
					formatYear(info.Year),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"NAME", "INPUTS", "LOOKUP", "YEAR"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
