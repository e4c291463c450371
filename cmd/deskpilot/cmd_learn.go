package main

import (
	"github.com/spf13/cobra"
)

func newLearnCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "learn <name>",
		Short: "Synthesize a plan from recent activity and save it",
		Long: `Bring enrichment up to date, feed the most recent window of enriched
events to the local completion model and save the synthesized plan under
the given name.

Completion output is validated against a strict action schema before
anything is written; an invalid result is retried with a corrective prompt
a bounded number of times, and nothing invalid is ever persisted.

Example:
  deskpilot learn open_timesheet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			report, err := pipe.Learn(cmd.Context(), args[0], overwrite)
			if err != nil {
				return err
			}
			return emit(cmd, report, report.Line())
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing plan of the same name")
	return cmd
}
