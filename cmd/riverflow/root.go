package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/config"
	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/logview"
)

var (
	configPath  string
	noColor     bool
	logFilter   string
	logInterval time.Duration
)

// rootCmd starts the interactive shell when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "riverflow",
	Short: "Collaborative mindmap editor with per-user undo and redo",
	Long: `RiverFlow stores mindmaps in a local database and records every change
in a per-user history, so each collaborator can undo and redo their own edits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd.Context(), shellMode, "")
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd.Context(), serveMode, "")
	},
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a file of shell commands, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd.Context(), scriptMode, args[0])
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [directory]",
	Short: "Follow the log files in a compact colored form",
	Long: `Follows every *.log file in the log folder of the configuration, or in
the given directory, and prints new entries until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dir string
		if len(args) == 1 {
			dir = args[0]
		} else {
			if err := config.ConfigLoad(configPath); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			dir = config.ConfigGet().LogFolder
		}

		useColor := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
		viewer, err := logview.NewViewer(dir, logFilter, logInterval, os.Stdout, useColor)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("Monitoring logs in directory: %s\n", dir)
		return viewer.Follow(ctx)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the JSON config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.SilenceUsage = true
	logsCmd.Flags().StringVarP(&logFilter, "filter", "f", "", "Only show entries containing this text")
	logsCmd.Flags().DurationVarP(&logInterval, "rate", "r", time.Second, "Refresh interval")
	rootCmd.AddCommand(serveCmd, runCmd, logsCmd)
}
