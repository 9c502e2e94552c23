package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/core"
	"github.com/joseph-ayodele/receipts-extractor/internal/export"
	"github.com/joseph-ayodele/receipts-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipts-extractor/internal/repository"
)

type runFlags struct {
	output    string
	workers   int
	noSummary bool
	store     bool
	skipSeen  bool
	quiet     bool
}

func runCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Process every receipt in a directory and export a workbook",
		Long: `Process every receipt in a directory (recursively) on a bounded worker pool,
then write an Excel workbook with Transactions, Review and Summary sheets.

Examples:
  receipts run ./inbox
  receipts run ./inbox --output out/2024.xlsx --workers 8
  receipts run ./inbox --store --skip-seen   # persist the run, skip files seen before`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.Pipeline.InboxDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runBatch(cmd, f, dir)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "workbook path (default OUTPUT_PATH)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "concurrent documents (default WORKERS)")
	cmd.Flags().BoolVar(&f.noSummary, "no-summary", false, "omit the Summary sheet")
	cmd.Flags().BoolVar(&f.store, "store", false, "save the run to the database")
	cmd.Flags().BoolVar(&f.skipSeen, "skip-seen", false, "skip documents already processed by a stored run (implies --store)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "no progress bar")
	return cmd
}

func runBatch(cmd *cobra.Command, f *runFlags, dir string) error {
	ctx := cmd.Context()
	if f.workers > 0 {
		cfg.Pipeline.Workers = f.workers
	}
	if f.output == "" {
		f.output = cfg.Pipeline.OutputPath
	}

	proc, err := core.NewProcessorFromConfig(cfg, nil, logger)
	if err != nil {
		return err
	}

	opts := core.BatchOptions(cfg.Pipeline)
	var ingestOpts []ingest.Option
	if f.store || f.skipSeen {
		db, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.Error("db.close.failed", "error", cerr)
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		runs := repository.NewRunRepository(db, logger)
		opts = append(opts, core.WithStore(runs))
		if f.skipSeen {
			ingestOpts = append(ingestOpts, ingest.WithHashIndex(runs))
		}
	}
	if !f.quiet {
		opts = append(opts, core.WithProgress(progressReporter(cmd.ErrOrStderr())))
	}

	batch := core.NewBatch(logger, ingest.NewFSIngestor(logger, ingestOpts...), proc, opts...)
	rep, err := batch.Run(ctx, dir)
	if err != nil {
		return err
	}

	// export whatever finished, even after an interrupt
	if err := export.NewService(logger).WriteFile(ctx, f.output, rep.Transactions, rep.Review, !f.noSummary); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printReport(out, rep, f.output)
	if rep.Status() == constants.StatusFailed {
		return fmt.Errorf("all %d documents failed", rep.Run.Total)
	}
	return ctx.Err()
}

// progressReporter draws a bar once the number of documents is known.
func progressReporter(w io.Writer) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("processing receipts"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
			)
		}
		if err := bar.Set(done); err != nil {
			slog.Debug("progress.render.failed", "error", err)
		}
	}
}

func printReport(w io.Writer, rep *core.Report, output string) {
	r := rep.Run
	fmt.Fprintf(w, "Processed %d documents in %s\n", r.Total, r.InputDir)
	fmt.Fprintf(w, "  succeeded:           %d\n", r.Succeeded)
	fmt.Fprintf(w, "  failed:              %d\n", r.Failed)
	fmt.Fprintf(w, "  flagged for review:  %d\n", r.Flagged)
	fmt.Fprintf(w, "  skipped duplicates:  %d\n", r.Skipped)
	if s := rep.Summary; s.Total > 0 {
		fmt.Fprintf(w, "Review queue: %d items (category %d, ocr %d, missing data %d, high value %d, failures %d)\n",
			s.Total, s.CategoryIssues, s.OCRIssues, s.MissingData, s.HighValue, s.Failures)
	}
	fmt.Fprintf(w, "Workbook: %s\n", output)
}
