package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filebutler/internal/index"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show file index status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := index.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index database: %s\n", store.Path())
			if cfg.Index.MaxIndexedFiles > 0 {
				fmt.Fprintf(out, "Indexed files:  %d / %d\n", count, cfg.Index.MaxIndexedFiles)
			} else {
				fmt.Fprintf(out, "Indexed files:  %d\n", count)
			}
			return nil
		},
	}
}
