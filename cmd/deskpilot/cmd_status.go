package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show captured events, enrichment backlog and saved plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			st, err := pipe.Status()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return emit(cmd, st, "")
			}
			fmt.Printf("events:   %d captured, %d pending enrichment\n", st.RawEvents, st.Pending)
			fmt.Printf("replay:   %s\n", st.ReplayState)
			if len(st.Plans) == 0 {
				fmt.Println("plans:    none")
			} else {
				fmt.Printf("plans:    %s\n", strings.Join(st.Plans, ", "))
			}
			return nil
		},
	}
}
