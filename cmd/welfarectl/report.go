package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"welfare/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export reports",
	}

	var (
		from   string
		to     string
		format string
		out    string
	)
	contributions := &cobra.Command{
		Use:   "contributions",
		Short: "Export the contributions report as csv, xlsx or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			toDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			if to != "" {
				if toDate, err = time.Parse("2006-01-02", to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			fromDate := time.Date(toDate.Year(), toDate.Month(), 1, 0, 0, 0, 0, time.UTC)
			if from != "" {
				if fromDate, err = time.Parse("2006-01-02", from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.services().Reports.ContributionReport(cmd.Context(), fromDate, toDate)
			if err != nil {
				return err
			}

			data, err := report.Render(r, f)
			if err != nil {
				return err
			}

			if out == "" {
				out = r.Filename(f)
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(r.Rows), out)
			return nil
		},
	}
	contributions.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD), default first of the month")
	contributions.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), default today")
	contributions.Flags().StringVar(&format, "format", "csv", "csv, xlsx or pdf")
	contributions.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout")

	cmd.AddCommand(contributions)
	return cmd
}
