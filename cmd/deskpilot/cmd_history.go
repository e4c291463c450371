package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch-operation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			runs, err := pipe.History(limit)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return emit(cmd, runs, "")
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %-8s %-7s %s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Op, r.Status, r.Report)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "How many runs to show")
	return cmd
}
