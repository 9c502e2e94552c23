package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/internal/core"
	"github.com/joseph-ayodele/receipts-extractor/internal/core/async"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

type extractOutput struct {
	Transactions []entity.Transaction `json:"transactions"`
	Review       []review.Item        `json:"review"`
}

func extractCmd() *cobra.Command {
	var ocrConfidence float64
	cmd := &cobra.Command{
		Use:   "extract <file>... | -",
		Short: "Extract fields from single documents and print them as JSON",
		Long: `Extract fields from one or more documents and print the resulting transactions
and review items as JSON. "-" reads raw receipt text from stdin.

Examples:
  receipts extract inbox/lawson.pdf
  pbpaste | receipts extract - --ocr-confidence 0.8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := core.NewProcessorFromConfig(cfg, nil, logger)
			if err != nil {
				return err
			}

			out := extractOutput{}
			for _, arg := range args {
				if arg == "-" {
					text, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return err
					}
					out.Transactions = append(out.Transactions, proc.Analyze("stdin", ocr.Normalize(string(text)), ocrConfidence))
					continue
				}
				if _, err := os.Stat(arg); err != nil {
					return err
				}
				job := async.Job{Path: arg, TraceID: uuid.NewString()}
				out.Transactions = append(out.Transactions, proc.Process(cmd.Context(), job))
			}
			out.Review = proc.Review().Items()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().Float64Var(&ocrConfidence, "ocr-confidence", ocr.EmbeddedTextConfidence, "recognition confidence assumed for stdin text")
	return cmd
}
