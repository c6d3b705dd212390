package main

import (
	"github.com/spf13/cobra"
)

func newPapersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "papers",
		Short: "List ingested papers with submission counts and averages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			papers, err := svc.ListPapers(cmd.Context())
			if err != nil {
				return err
			}
			displayPapers(cmd.OutOrStdout(), papers)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var paper string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show score statistics and the grade distribution of a paper",
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

			p, err := svc.GetPaper(cmd.Context(), paper)
			if err != nil {
				return err
			}
			stats, err := svc.PaperStatistics(cmd.Context(), p.Code)
			if err != nil {
				return err
			}
			displayStatistics(cmd.OutOrStdout(), p, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&paper, "paper", "", "paper code")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var paper string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the uploads recorded for a paper, newest first",
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

			uploads, err := svc.PaperHistory(cmd.Context(), paper)
			if err != nil {
				return err
			}
			displayHistory(cmd.OutOrStdout(), paper, uploads)
			return nil
		},
	}
	cmd.Flags().StringVar(&paper, "paper", "", "paper code")
	return cmd
}
