package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nonsonwune/boe_visualizer/importer"
	"github.com/nonsonwune/boe_visualizer/sheet"
)

func loadSheet(path string) (string, error) {
	text, err := sheet.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", withCode(exitUsage, err)
	}
	return text, err
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		paper, file, source string
		dryRun              bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a grade sheet for a paper, creating the paper if needed",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return requireFlags(cmd, "paper", "file")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := loadSheet(file)
			if err != nil {
				return err
			}
			_, im, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := im.Ingest(cmd.Context(), importer.Request{
				PaperCode:  paper,
				CSV:        text,
				SourceName: source,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}
			displayImportSummary(cmd.OutOrStdout(), paper, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&paper, "paper", "", "paper code, e.g. COMP101-23A(HAM)")
	cmd.Flags().StringVar(&file, "file", "", "grade sheet to ingest (CSV or XLSX)")
	cmd.Flags().StringVar(&source, "source", "", "source name recorded on the upload (default: timestamped from the paper code)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the ingestion and roll it back")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var paper, file string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-ingest a grade sheet for an existing paper",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return requireFlags(cmd, "paper", "file")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := loadSheet(file)
			if err != nil {
				return err
			}
			svc, _, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := svc.UpdatePaper(cmd.Context(), paper, text)
			if err != nil {
				return err
			}
			displayImportSummary(cmd.OutOrStdout(), paper, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&paper, "paper", "", "code of an already ingested paper")
	cmd.Flags().StringVar(&file, "file", "", "grade sheet to ingest (CSV or XLSX)")
	return cmd
}
