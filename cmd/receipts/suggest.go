package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/internal/classify"
	"github.com/joseph-ayodele/receipts-extractor/internal/extract"
)

func suggestCmd() *cobra.Command {
	var (
		vendor      string
		description string
		top         int
	)
	cmd := &cobra.Command{
		Use:   "suggest [text-file]",
		Short: "Rank candidate categories for receipt text",
		Long: `Rank candidate categories for a receipt. Text comes from the file argument or
stdin; when --vendor is not given the vendor extractor runs on the text.

Examples:
  receipts suggest receipt.txt
  echo "スターバックス 新宿店" | receipts suggest --top 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			text := string(data)

			c, err := classify.NewClassifier(logger, classify.FileProvider{Path: cfg.Pipeline.RulesPath})
			if err != nil {
				return err
			}
			if vendor == "" {
				if v := extract.NewDefaultParser(logger).Parse(text).Vendor; v != nil {
					vendor = v.Value
				}
			}

			out := cmd.OutOrStdout()
			category, conf := c.Classify(vendor, description, text)
			fmt.Fprintf(out, "vendor:   %s\ncategory: %s (%.2f)\n\n", orDash(vendor), category, conf)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tCATEGORY\tSCORE\tCONFIDENCE")
			for i, s := range c.Suggestions(vendor, description, text, top) {
				fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.2f\n", i+1, s.Category, s.Score, s.Confidence)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name (default: extracted from the text)")
	cmd.Flags().StringVar(&description, "description", "", "extra description text to score")
	cmd.Flags().IntVarP(&top, "top", "n", 5, "number of suggestions")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
