package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Resolve pending STK Push payments by querying the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			summary, err := e.services().Payments.ReconcilePending(cmd.Context(), olderThan)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 5*time.Minute, "only check requests pending for at least this long")
	return cmd
}
