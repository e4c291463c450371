package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/deskpilot/internal/models"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for voice commands and dispatch them",
		Long: `Poll the event log for new voice commands. Each cycle brings enrichment
up to date, classifies the most recent unhandled transcription and
dispatches it:

  "run <name>"    replays the named plan
  "learn <name>"  synthesizes a plan from recent activity

Anything else is ignored. Polling runs until interrupted (Ctrl-C).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "watching for voice commands every %s, press Ctrl-C to stop\n", interval)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				dispatch, err := pipe.HandleCommand(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					fmt.Fprintf(os.Stderr, "dispatch failed: %v\n", err)
					continue
				}
				if dispatch.Intent.Kind == models.IntentNone {
					continue
				}
				fmt.Printf("%s %q: %s\n", dispatch.Intent.Kind, dispatch.Intent.Workflow, dispatch.Line)
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval")
	return cmd
}
