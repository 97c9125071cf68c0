package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"filebutler/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var organizeExisting bool
	var flattenFirst bool
	var catchUp time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured folders and organize new files",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := newConsoleEvents(cmd.OutOrStdout())
			rt, err := ctx.buildRuntime(events)
			if err != nil {
				return err
			}
			defer rt.Close()

			lockPath := filepath.Join(rt.cfg.Paths.DataDir, "filebutler.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("another filebutler instance is already watching")
			}
			defer lock.Unlock() //nolint:errcheck

			opts := watcher.StartOptions{
				OrganizeExisting: organizeExisting,
				FlattenFirst:     flattenFirst,
			}
			if catchUp > 0 {
				opts.OrganizeExisting = true
				opts.CatchUpSince = time.Now().Add(-catchUp)
			}

			if err := rt.watcher.Start(runCtx, opts); err != nil {
				return err
			}

			<-runCtx.Done()
			rt.watcher.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&organizeExisting, "organize-existing", false, "Organize files already present before watching")
	cmd.Flags().BoolVar(&flattenFirst, "flatten-first", false, "Move nested files up to each folder root before organizing")
	cmd.Flags().DurationVar(&catchUp, "catch-up", 0, "Also organize existing files modified within this duration (e.g. 24h)")
	return cmd
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var flatten bool

	cmd := &cobra.Command{
		Use:   "organize <folder>...",
		Short: "Organize one or more folders once and exit",
		Long: "Organize one or more folders once and exit. By default files may only " +
			"be filed into each folder's existing subfolders; with --flatten the " +
			"whole tree is rebuilt from scratch.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := newConsoleEvents(cmd.OutOrStdout())
			rt, err := ctx.buildRuntime(events)
			if err != nil {
				return err
			}
			defer rt.Close()

			choice := watcher.OrganizeAsIs
			if flatten {
				choice = watcher.ReorganizeAll
			}
			choices := make(map[string]watcher.FolderChoice, len(args))
			for _, arg := range args {
				folder, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				choices[folder] = choice
			}

			dispatched := rt.watcher.OrganizeFolders(runCtx, choices)
			for i := 0; i < dispatched; i++ {
				select {
				case <-events.batchDone:
				case <-runCtx.Done():
					return runCtx.Err()
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flatten, "flatten", false, "Flatten the folder and rebuild its structure")
	return cmd
}
