package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List saved plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			names, err := pipe.Plans().List()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if names == nil {
					names = []string{}
				}
				return emit(cmd, names, "")
			}
			if len(names) == 0 {
				fmt.Println("no plans saved")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	cmd.AddCommand(newPlansShowCmd())
	return cmd
}

func newPlansShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved plan's actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			plan, err := pipe.Plans().Load(args[0])
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return emit(cmd, plan, "")
			}
			fmt.Printf("%s (created %s, %d actions)\n", plan.Name,
				plan.CreatedAt.Format("2006-01-02 15:04:05"), len(plan.Actions))
			for i, action := range plan.Actions {
				fmt.Printf("  %2d. %s\n", i+1, action.Describe())
			}
			return nil
		},
	}
}
