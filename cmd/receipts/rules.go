package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/internal/classify"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate category rule files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [rules.yml]",
		Short: "Check a rule file against the schema and the known category labels",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Pipeline.RulesPath
			if len(args) == 1 {
				path = args[0]
			}
			rules, err := classify.FileProvider{Path: path}.Rules()
			if err != nil {
				return err
			}
			if unknown := classify.ValidateRules(rules); len(unknown) > 0 {
				return common.NewAppError(common.CodeConfig,
					"unknown categories: "+strings.Join(unknown, ", "), common.ErrValidation)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d categories\n", len(rules))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the active categories and their keyword counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := classify.FileProvider{Path: cfg.Pipeline.RulesPath}.Rules()
			if err != nil {
				return err
			}
			for _, r := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%-45s %3d keywords\n", r.Name, len(r.Keywords))
			}
			return nil
		},
	})
	return cmd
}
