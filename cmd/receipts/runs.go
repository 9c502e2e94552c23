package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/export"
	"github.com/joseph-ayodele/receipts-extractor/internal/repository"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs and re-export them",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			runs, err := repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tDIR\tTOTAL\tOK\tFAILED\tFLAGGED\tSKIPPED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.InputDir,
					r.Total, r.Succeeded, r.Failed, r.Flagged, r.Skipped)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs (0 = all)")

	var output string
	exp := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the workbook of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return common.NewAppError(common.CodeExport, "run id must be a UUID", common.ErrInvalidInput)
			}
			repo, closeDB, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			txs, err := repo.ListTransactions(ctx, runID)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				return common.WrapError(common.ErrNotFound, "run "+runID.String())
			}
			items, err := repo.ListReviewItems(ctx, runID)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Pipeline.OutputPath
			}
			if err := export.NewService(logger).WriteFile(ctx, output, txs, items, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workbook: %s (%d transactions, %d review items)\n", output, len(txs), len(items))
			return nil
		},
	}
	exp.Flags().StringVarP(&output, "output", "o", "", "workbook path (default OUTPUT_PATH)")

	cmd.AddCommand(list, exp)
	return cmd
}

func openRuns(cmd *cobra.Command) (repository.RunRepository, func(), error) {
	db, err := repository.Open(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("db.close.failed", "error", err)
		}
	}
	return repository.NewRunRepository(db, logger), closeDB, nil
}
