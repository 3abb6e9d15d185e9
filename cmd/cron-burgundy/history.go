package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [qualified-id]",
		Short: "Show recent runs recorded by the runner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp()
			if err != nil {
				return err
			}
			store, err := history.Open(a.layout.HistoryDBPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			qid := ""
			if len(args) == 1 {
				qid = args[0]
			}
			runs, err := store.Recent(qid, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}
			for _, r := range runs {
				kind := "manual"
				if r.Scheduled {
					kind = "scheduled"
				}
				line := fmt.Sprintf("%s  %-9s %-9s %s (%dms)",
					r.Started.Local().Format(time.RFC3339), r.Outcome, kind, r.QualifiedID, r.Duration.Milliseconds())
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "l", 20, "Maximum runs to show")
	return cmd
}
