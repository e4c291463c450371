package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nvandessel/deskpilot/internal/input"
	"github.com/nvandessel/deskpilot/internal/recorder"
)

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Capture desktop activity into the event log",
		Long: `Start capturing clicks, keystrokes and push-to-talk audio into the
append-only event log.

Clicks take a screenshot of the screen at capture time. Printable
keystrokes are coalesced into text_input events. Holding the push-to-talk
key records an audio command for later transcription.

Capture runs until interrupted (Ctrl-C).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := openPipeline(cmd)
			if err != nil {
				return err
			}
			defer pipe.Close()

			hooks, err := input.SystemHooks()
			if err != nil {
				return err
			}
			cfg := pipe.Config()

			rec := recorder.New(pipe.Store(), hooks,
				recorder.NewScrot(cfg.ScrotPath),
				recorder.NewArecord(cfg.ArecordPath),
				recorder.Config{
					KeyFlushTimeout: cfg.KeyFlushTimeout,
					PushToTalkKey:   cfg.PushToTalkKey,
				}, newLogger())

			if err := rec.Start(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "recording, press Ctrl-C to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			signal.Stop(sig)

			if err := rec.Stop(); err != nil {
				return err
			}
			return emit(cmd, map[string]string{"status": "stopped"}, "recording stopped")
		},
	}
}
