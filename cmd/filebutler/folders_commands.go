package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage the watched folder list",
	}

	foldersCmd.AddCommand(newFoldersAddCommand(ctx))
	foldersCmd.AddCommand(newFoldersRemoveCommand(ctx))
	foldersCmd.AddCommand(newFoldersListCommand(ctx))

	return foldersCmd
}

func newFoldersAddCommand(ctx *commandContext) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "add <folder>",
		Short: "Add a folder to the watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(folder)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("not a valid directory: %s", folder)
			}

			list, err := ctx.watchlist()
			if err != nil {
				return err
			}
			if err := list.Add(folder, instruction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", folder)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Organization instruction for this folder (e.g. \"sort by project\")")
	return cmd
}

func newFoldersRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <folder>",
		Short: "Remove a folder from the watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			list, err := ctx.watchlist()
			if err != nil {
				return err
			}
			removed, err := list.Remove(folder)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("folder not in watch list: %s", folder)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", folder)
			return nil
		},
	}
}

func newFoldersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watched folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.watchlist()
			if err != nil {
				return err
			}
			entries := list.Entries()
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No folders are being watched")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				instruction := entry.Instruction
				if instruction == "" {
					instruction = "-"
				}
				rows = append(rows, []string{entry.Path, instruction})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Instruction"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
