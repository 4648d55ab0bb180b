package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trawler/internal/api"
)

func newExecutionsCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "executions [id]",
		Short: "List executions or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.newClient()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				exec, err := apiClient.Execution(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printExecutionDetail(cmd, exec)
				if follow {
					return apiClient.FollowLog(cmd.Context(), exec.ID, func(line api.LogLine) error {
						fmt.Fprintln(cmd.OutOrStdout(), formatLogLine(line))
						return nil
					})
				}
				return nil
			}

			executions, err := apiClient.Executions(cmd.Context())
			if err != nil {
				return err
			}
			if len(executions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no executions")
				return nil
			}

			rows := make([][]string, 0, len(executions))
			for _, exec := range executions {
				rows = append(rows, []string{
					exec.ID,
					exec.Task,
					exec.Status,
					formatTimestamp(exec.Created),
					formatDuration(exec),
					exec.Message,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "TASK", "STATUS", "CREATED", "DURATION", "MESSAGE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream the execution's log after showing it")
	return cmd
}

func printExecutionDetail(cmd *cobra.Command, exec api.Execution) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", exec.ID)
	fmt.Fprintf(out, "Task:     %s\n", exec.Task)
	fmt.Fprintf(out, "Status:   %s\n", exec.Status)
	fmt.Fprintf(out, "Created:  %s\n", formatTimestamp(exec.Created))
	if exec.Started != nil {
		fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(*exec.Started))
	}
	if exec.Finished != nil {
		fmt.Fprintf(out, "Finished: %s\n", formatTimestamp(*exec.Finished))
	}
	if exec.Message != "" {
		fmt.Fprintf(out, "Message:  %s\n", exec.Message)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(exec api.Execution) string {
	if exec.Started == nil {
		return ""
	}
	end := time.Now()
	if exec.Finished != nil {
		end = *exec.Finished
	}
	return end.Sub(*exec.Started).Round(time.Millisecond).String()
}
