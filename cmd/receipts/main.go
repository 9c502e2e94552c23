package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

var (
	envFiles  []string
	logLevel  string
	logFormat string
	rulesPath string

	cfg       *common.Config
	logger    *slog.Logger
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:   "receipts",
		Short: "Extract dates, amounts, vendors and categories from Japanese receipt text",
		Long: `receipts reads OCR text of Japanese receipts and invoices (sidecar JSON, text
files, PDFs, images) and extracts the transaction date, total amount, vendor,
expense category and a short description. Anything uncertain lands in a review
queue; results can be exported to an Excel workbook.`,
		SilenceUsage:       true,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: closeLog,
	}
)

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); overrides LOG_FORMAT")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "category rule file; overrides RULES_PATH (default: built-in rules)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(runsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := common.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	cfg = common.LoadConfig()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if rulesPath != "" {
		cfg.Pipeline.RulesPath = rulesPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, logCloser = common.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

func closeLog(_ *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
