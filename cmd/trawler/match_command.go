package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trawler/internal/match"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "match <name>",
		Short: "Resolve a title against the movie database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.newClient()
			if err != nil {
				return err
			}

			query := match.Query{Name: strings.Join(args, " "), Year: year}
			resp, err := apiClient.Match(cmd.Context(), query)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch resp.Result.Kind() {
			case match.KindSingle:
				best, _ := resp.Result.Best()
				fmt.Fprintf(out, "%s (%d)  %s  score %.3f\n", best.Name, best.Year, best.URL, best.Score)
			case match.KindAmbiguous:
				fmt.Fprintln(out, "ambiguous:")
				rows := make([][]string, 0, len(resp.Result.Candidates()))
				for _, candidate := range resp.Result.Candidates() {
					rows = append(rows, []string{
						candidate.Name,
						formatYear(candidate.Year),
						fmt.Sprintf("%.3f", candidate.Score),
						candidate.URL,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"NAME", "YEAR", "SCORE", "URL"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
			default:
				fmt.Fprintln(out, "no match")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year to disambiguate with")
	return cmd
}

func formatYear(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf("%d", year)
}
