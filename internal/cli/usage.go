package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newUsageCmd(e *env) *cobra.Command {
	usage := &cobra.Command{
		Use:   "usage",
		Short: "Maintain recorded usage events",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete usage events older than the given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the day window must stay countable
			if olderThan < 24*time.Hour {
				return fmt.Errorf("--older-than must be at least 24h")
			}

			deleted, err := e.usage.DeleteOlderThan(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("pruning usage events: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d usage events\n", deleted)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Minimum age of events to delete")

	usage.AddCommand(prune)
	return usage
}
