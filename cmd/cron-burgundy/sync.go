package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/channel4/cron-burgundy/internal/launchd"
	"github.com/channel4/cron-burgundy/internal/registry"
	"github.com/channel4/cron-burgundy/internal/watch"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Register a source file and reconcile launchd configurations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, _ := cmd.Flags().GetString("namespace")
			watchMode, _ := cmd.Flags().GetBool("watch")

			a, err := newApp()
			if err != nil {
				return err
			}
			adapter, err := a.adapter()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				outcome, err := a.reg.Register(args[0], namespace)
				if err != nil {
					return err
				}
				abs, _ := filepath.Abs(args[0])
				fmt.Printf("%s: %s\n", abs, outcome)
			}

			syncAll := func() error {
				sources, err := a.reg.LoadAll()
				if err != nil {
					return err
				}
				for _, src := range sources {
					if namespace != "" && src.Namespace != namespace {
						continue
					}
					if src.Err != nil {
						fmt.Fprintf(os.Stderr, "warning: %s: %v\n", src.File, src.Err)
						continue
					}
					summary, err := adapter.Sync(src.Jobs, src.Namespace, filepath.Dir(src.File))
					if err != nil {
						return err
					}
					printSyncSummary(src, summary)
				}
				if _, err := adapter.EnsureWakeCheck(); err != nil {
					return err
				}
				return nil
			}

			if err := syncAll(); err != nil {
				return err
			}
			if !watchMode {
				return nil
			}

			sources, err := a.reg.LoadAll()
			if err != nil {
				return err
			}
			var files []string
			for _, src := range sources {
				if namespace == "" || src.Namespace == namespace {
					files = append(files, src.File)
				}
			}
			w, err := watch.New(watch.Config{
				Paths:  files,
				Logger: a.logger,
				OnChange: func(string) error {
					return syncAll()
				},
			})
			if err != nil {
				return err
			}
			fmt.Printf("watching %d source file(s), ^C to stop\n", len(files))
			if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringP("namespace", "n", "", "Namespace for the source file")
	cmd.Flags().BoolP("watch", "w", false, "Keep running and re-sync when source files change")
	return cmd
}

func printSyncSummary(src registry.Source, s launchd.SyncSummary) {
	fmt.Printf("%s (namespace %q): %d installed, %d unchanged, %d disabled, %d orphaned\n",
		src.File, src.Namespace,
		len(s.Installed), len(s.Unchanged), len(s.Disabled), len(s.Orphaned))
	for id, err := range s.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", id, err)
	}
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <path|all>",
		Short: "Uninstall launchd configurations and unregister source files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, _ := cmd.Flags().GetString("namespace")
			yes, _ := cmd.Flags().GetBool("yes")

			a, err := newApp()
			if err != nil {
				return err
			}
			adapter, err := a.adapter()
			if err != nil {
				return err
			}

			if args[0] == "all" {
				if !yes {
					var confirmed bool
					prompt := huh.NewConfirm().
						Title("Remove every cron-burgundy launchd configuration?").
						Description("Registered source files are unregistered as well.").
						Value(&confirmed)
					if err := prompt.Run(); err != nil {
						return err
					}
					if !confirmed {
						fmt.Println("aborted")
						return nil
					}
				}

				removed, err := adapter.UninstallAll(namespace)
				if err != nil {
					return err
				}
				entries, err := a.reg.Entries()
				if err != nil {
					return err
				}
				for _, e := range entries {
					if namespace != "" && e.Namespace != namespace {
						continue
					}
					if _, err := a.reg.Unregister(e.Path); err != nil {
						return err
					}
				}
				fmt.Printf("removed %d configuration(s)\n", len(removed))
				return nil
			}

			entry, found, err := a.reg.Find(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s is not registered", args[0])
			}
			defs, err := registry.LoadFile(entry.Path)
			if err == nil {
				for _, def := range defs {
					if err := adapter.Uninstall(entry.Namespace, def.ID); err != nil {
						return err
					}
				}
			} else {
				// Source unreadable: fall back to removing whatever is
				// installed under its namespace.
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", entry.Path, err)
				if _, err := adapter.UninstallAll(entry.Namespace); err != nil {
					return err
				}
			}
			outcome, err := a.reg.Unregister(entry.Path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", entry.Path, outcome)
			return nil
		},
	}
	cmd.Flags().StringP("namespace", "n", "", "Restrict clearing to one namespace")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List installed launchd configurations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			adapter, err := a.adapter()
			if err != nil {
				return err
			}
			names, err := adapter.ListInstalled()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no configurations installed")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
