package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/runner"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [qualified-id]",
		Short: "Run one job now, or every due job when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduled, _ := cmd.Flags().GetBool("scheduled")

			a, err := newApp()
			if err != nil {
				return err
			}
			r := a.runner()
			defer r.ReleaseLocks()

			if len(args) == 1 {
				def, src, err := a.reg.FindJob(args[0])
				if err != nil {
					return err
				}
				job, err := runner.FromDefinition(def, src)
				if err != nil {
					return err
				}
				return r.RunJobNow(job, scheduled)
			}

			jobs, err := a.loadJobs("")
			if err != nil {
				return err
			}
			res, err := r.RunAllDue(jobs, scheduled)
			if err != nil {
				return err
			}
			printResults(res)
			return nil
		},
	}
	cmd.Flags().Bool("scheduled", false, "Mark this as a scheduler-triggered run (applies the pause gate)")
	return cmd
}

func checkMissedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-missed",
		Short: "Catch up jobs whose last run is older than their interval",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			r := a.runner()
			defer r.ReleaseLocks()

			jobs, err := a.loadJobs("")
			if err != nil {
				return err
			}
			res, err := r.CheckMissed(jobs)
			if err != nil {
				return err
			}
			printResults(res)
			return nil
		},
	}
}

func printResults(res runner.Results) {
	print := func(label string, qids []string) {
		if len(qids) == 0 {
			return
		}
		fmt.Printf("%s (%d):", label, len(qids))
		for _, qid := range qids {
			fmt.Printf(" %s", qid)
		}
		fmt.Println()
	}
	print("ran", res.Ran)
	print("skipped", res.Skipped)
	print("disabled", res.Disabled)
	print("paused", res.Paused)
	print("failed", res.Failed)
	if len(res.Ran)+len(res.Skipped)+len(res.Disabled)+len(res.Paused)+len(res.Failed) == 0 {
		fmt.Println("no jobs registered")
	}
}
