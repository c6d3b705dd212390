package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.migrate(cmd.Context(), a)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", v)
			return nil
		},
	}
}
