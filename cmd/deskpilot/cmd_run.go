package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Replay a saved plan",
		Long: `Load the named plan and dispatch its actions through the input
simulator, pausing between actions so the desktop can settle. A short
countdown before the first action gives you time to focus the target
window.

Ctrl-C aborts the replay before its next action; an action already
dispatched is never interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			go func() {
				for range sig {
					fmt.Fprintln(os.Stderr, "abort requested, stopping before next action")
					pipe.Abort()
				}
			}()

			result, err := pipe.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(cmd, result, result.Line())
		},
	}
}
