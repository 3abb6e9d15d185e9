// Package main is the entry point for the cron-burgundy CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cron-burgundy",
		Short:         "A launchd-backed cron-style job manager for macOS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		versionCmd(),
		runCmd(),
		checkMissedCmd(),
		listCmd(),
		syncCmd(),
		clearCmd(),
		statusCmd(),
		pauseCmd(),
		unpauseCmd(),
		logsCmd(),
		historyCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("cron-burgundy %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
