package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"filebutler/internal/exclusions"
	"filebutler/internal/logging"
)

func newPinsCommand(ctx *commandContext) *cobra.Command {
	pinsCmd := &cobra.Command{
		Use:   "pins",
		Short: "Manage pinned paths that are never organized",
	}

	pinsCmd.AddCommand(newPinsAddCommand(ctx))
	pinsCmd.AddCommand(newPinsRemoveCommand(ctx))
	pinsCmd.AddCommand(newPinsListCommand(ctx))

	return pinsCmd
}

func (c *commandContext) oracle() (*exclusions.Oracle, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return exclusions.New(cfg, logging.NewNop())
}

func newPinsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Pin a file or folder in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			oracle, err := ctx.oracle()
			if err != nil {
				return err
			}
			if err := oracle.Pin(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", path)
			return nil
		},
	}
}

func newPinsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Unpin a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			oracle, err := ctx.oracle()
			if err != nil {
				return err
			}
			if err := oracle.Unpin(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", path)
			return nil
		},
	}
}

func newPinsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pinned paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			oracle, err := ctx.oracle()
			if err != nil {
				return err
			}
			pins := oracle.Pinned()
			out := cmd.OutOrStdout()
			if len(pins) == 0 {
				fmt.Fprintln(out, "No pinned paths")
				return nil
			}
			for _, pin := range pins {
				fmt.Fprintln(out, pin)
			}
			return nil
		},
	}
}
