package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/state"
)

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <qualified-id|all>",
		Short: "Pause one job or every job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.store.Pause(args[0]); err != nil {
				return err
			}
			if args[0] == state.PauseTarget {
				fmt.Println("paused all jobs")
			} else {
				fmt.Printf("paused %s\n", args[0])
			}
			return nil
		},
	}
}

func unpauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpause <qualified-id|all>",
		Short: "Resume one job or every job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			noop, err := a.store.Resume(args[0])
			if err != nil {
				return err
			}
			if noop {
				fmt.Fprintf(os.Stderr,
					"warning: all jobs are paused; %q stays paused until you run: cron-burgundy unpause all\n",
					args[0])
				return nil
			}
			if args[0] == state.PauseTarget {
				fmt.Println("resumed all jobs")
			} else {
				fmt.Printf("resumed %s\n", args[0])
			}

			status, err := a.store.GetPauseStatus()
			if err != nil {
				return err
			}
			if len(status.Jobs) > 0 {
				ids := make([]string, 0, len(status.Jobs))
				for id := range status.Jobs {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				fmt.Printf("still paused: %v\n", ids)
			}
			return nil
		},
	}
}
