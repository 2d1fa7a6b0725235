package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		window    int
		retention time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store operation latency percentiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if retention > 0 {
				deleted, err := a.hist.CleanupOldData(cmd.Context(), retention)
				if err != nil {
					return err
				}
				a.logger.Info("latency history trimmed", "rows", deleted)
			}
			all, err := a.hist.AllPercentiles(cmd.Context(), window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "no samples")
				return nil
			}
			for _, p := range all {
				fmt.Fprintf(out, "%-20s n=%-6d p50=%.0fus p95=%.0fus p99=%.0fus\n",
					p.Operation, p.Count, p.P50, p.P95, p.P99)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 60, "Window in minutes")
	cmd.Flags().DurationVar(&retention, "retention", 0, "Delete samples older than this first")
	return cmd
}
