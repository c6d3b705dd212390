package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var paper, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a paper's submissions back out as CSV",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return requireFlags(cmd, "paper")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			csv, err := svc.ExportPaperCSV(cmd.Context(), paper)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), csv)
				return err
			}
			if err := os.WriteFile(output, []byte(csv), 0o644); err != nil {
				return errors.Wrap(err, "write export")
			}
			a.logger.WithField("paper", paper).WithField("output", output).Info("paper exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&paper, "paper", "", "paper code")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
