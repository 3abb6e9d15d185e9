package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/schedule"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered jobs with their schedule and run state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			namespace, _ := cmd.Flags().GetString("namespace")

			a, err := newApp()
			if err != nil {
				return err
			}

			doc, err := a.store.Load()
			if err != nil {
				return err
			}
			sources, err := a.reg.LoadAll()
			if err != nil {
				return err
			}

			status, err := a.store.GetPauseStatus()
			if err != nil {
				return err
			}
			if status.All {
				fmt.Println("all jobs are paused")
			}

			now := time.Now()
			shown := 0
			for _, src := range sources {
				if namespace != "" && src.Namespace != namespace {
					continue
				}
				if src.Err != nil {
					fmt.Fprintf(os.Stderr, "warning: %s: %v\n", src.File, src.Err)
					continue
				}
				for _, def := range src.Jobs {
					shown++
					qid := src.QualifiedID(def.ID)

					desc := def.Schedule
					if def.Interval > 0 {
						desc = fmt.Sprintf("every %s", time.Duration(def.Interval)*time.Millisecond)
					}

					flags := ""
					if !def.IsEnabled() {
						flags += " [disabled]"
					}
					if doc.IsPaused(qid) {
						flags += " [paused]"
					}

					fmt.Printf("%s — %s%s\n", qid, desc, flags)

					if last, ok := doc.LastRun(qid); ok {
						fmt.Printf("    last run: %s\n", last.Local().Format(time.RFC3339))
						if spec, err := def.Spec(); err == nil {
							if next, err := schedule.NextRun(spec, &last, now); err == nil && !next.IsZero() {
								fmt.Printf("    next run: %s\n", next.Local().Format(time.RFC3339))
							}
						}
					} else {
						fmt.Println("    last run: never")
					}
				}
			}
			if shown == 0 {
				fmt.Println("no jobs registered")
			}
			return nil
		},
	}
	cmd.Flags().StringP("namespace", "n", "", "Show only one namespace")
	return cmd
}
