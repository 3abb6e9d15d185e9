package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/joblog"
)

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and manage job and runner logs",
	}
	cmd.AddCommand(logsViewCmd(), logsListCmd(), logsClearCmd(), logsPruneCmd())
	return cmd
}

// logPathFor maps "runner" or a qualified id to its log file.
func logPathFor(a *app, target string) string {
	if target == "runner" {
		return a.layout.RunnerLogPath()
	}
	return a.layout.JobLogPath(target)
}

func logsViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <qualified-id|runner>",
		Short: "Print the tail of a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, _ := cmd.Flags().GetInt("lines")
			a, err := newApp()
			if err != nil {
				return err
			}
			return joblog.NewWriter(logPathFor(a, args[0])).Tail(os.Stdout, lines)
		},
	}
	cmd.Flags().IntP("lines", "l", 50, "Number of trailing lines to show")
	return cmd
}

func logsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List job logs with size and last write",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			entries, err := joblog.List(a.layout.JobLogsDir())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no job logs")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s\t%d bytes\t%s\n", e.QualifiedID, e.Size, e.Modified.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func logsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <qualified-id|runner|all>",
		Short: "Truncate a log and drop its rotated generations",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if args[0] == "all" {
				entries, err := joblog.List(a.layout.JobLogsDir())
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := joblog.Clear(e.Path); err != nil {
						return err
					}
				}
				if err := joblog.Clear(a.layout.RunnerLogPath()); err != nil {
					return err
				}
				fmt.Printf("cleared %d log(s)\n", len(entries)+1)
				return nil
			}
			return joblog.Clear(logPathFor(a, args[0]))
		},
	}
}

func logsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove job logs not written within the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			age, _ := cmd.Flags().GetDuration("age")
			a, err := newApp()
			if err != nil {
				return err
			}
			removed, err := joblog.Prune(a.layout.JobLogsDir(), age)
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d file(s)\n", len(removed))
			return nil
		},
	}
	cmd.Flags().Duration("age", 30*24*time.Hour, "Remove logs older than this")
	return cmd
}
