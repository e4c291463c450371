package main

import (
	"github.com/spf13/cobra"
)

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Attach OCR text and transcriptions to pending events",
		Long: `Run one enrichment batch: every raw event past the enrichment cursor
gets its screenshot OCR'd or its audio transcribed, and the cursor advances
only after each enriched record is durable. Interrupted runs resume where
they left off.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			report, err := pipe.Enrich(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, report, report.Line())
		},
	}
}
