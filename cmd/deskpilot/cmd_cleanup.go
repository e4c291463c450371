package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete raw artifacts older than the retention TTL",
		Long: `Delete screenshot and audio artifacts older than the retention TTL.
Event log entries are never deleted; only their artifact files expire.
Enriched text survives cleanup, so learned plans are unaffected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			report, err := pipe.Cleanup(cmd.Context(), ttl)
			if err != nil {
				return err
			}
			return emit(cmd, report, report.Line())
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Override the configured retention TTL (e.g. 48h)")
	return cmd
}
