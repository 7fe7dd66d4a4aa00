package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelterdb/internal/fixture"
)

func newFixturesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Manage fixture documents",
	}
	var overwrite bool
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Copy the bundled fixtures into the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blobs, err := a.openBlobs(cmd.Context())
			if err != nil {
				return err
			}
			written, err := fixture.NewBlob(blobs, a.cfg.Fixtures.Prefix).Seed(cmd.Context(), overwrite)
			for _, key := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", key)
			}
			if err != nil {
				return err
			}
			if len(written) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "fixtures already present; use --overwrite to replace them")
			}
			return nil
		},
	}
	seed.Flags().BoolVar(&overwrite, "overwrite", false, "replace fixtures already in the blob store")
	cmd.AddCommand(seed)
	return cmd
}
