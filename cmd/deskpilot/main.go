package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/deskpilot/internal/config"
	"github.com/nvandessel/deskpilot/internal/pipeline"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskpilot",
		Short: "Desktop observation-to-automation pipeline",
		Long: `deskpilot watches your desktop activity, enriches it with OCR and
speech-to-text, and turns recent activity into replayable automation plans.

Record a session, say or type what you did, then learn it as a named plan
and run it back whenever you need it.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Root directory holding the data directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRecordCmd(),
		newEnrichCmd(),
		newLearnCmd(),
		newRunCmd(),
		newPlansCmd(),
		newCleanupCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newMCPServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("deskpilot version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the data directory with a default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg := config.Default()
			if err := cfg.Write(root); err != nil {
				return err
			}

			// Opening the pipeline lays out the log, cursor and artifact
			// directories.
			pipe, err := pipeline.Open(root, cfg, newLogger())
			if err != nil {
				return err
			}
			defer pipe.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{
					"status": "initialized",
					"path":   config.DataDir(root),
				})
			}
			fmt.Printf("Initialized %s/ in %s\n", config.DirName, root)
			return nil
		},
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// openPipeline loads the configuration under the command's --root and opens
// the pipeline against it. The caller closes the pipeline.
func openPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	root, _ := cmd.Flags().GetString("root")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return pipeline.Open(root, cfg, newLogger())
}

// emit prints v as JSON when --json is set, otherwise prints line.
func emit(cmd *cobra.Command, v any, line string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(v)
	}
	fmt.Println(line)
	return nil
}
