package export

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

const (
	SheetTransactions = "Transactions"
	SheetReview       = "Review"
	SheetSummary      = "Summary"
)

// Service renders run results as an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX returns a workbook (as bytes) with a Transactions sheet for every
// document that produced output, a Review sheet and, when asked, a Summary sheet.
// Failed documents only appear on the Review sheet.
func (s *Service) ExportXLSX(ctx context.Context, txs []entity.Transaction, items []review.Item, withSummary bool) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]entity.Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Failed() {
			rows = append(rows, t)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()

	if err := writeTransactions(f, rows); err != nil {
		return nil, common.NewAppError(common.CodeExport, "transactions sheet", err)
	}
	if err := writeReview(f, items); err != nil {
		return nil, common.NewAppError(common.CodeExport, "review sheet", err)
	}
	if withSummary {
		if err := writeSummary(f, rows); err != nil {
			return nil, common.NewAppError(common.CodeExport, "summary sheet", err)
		}
	}
	// drop the default sheet excelize creates
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, common.NewAppError(common.CodeExport, "remove default sheet", err)
	}
	if idx, err := f.GetSheetIndex(SheetTransactions); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.NewAppError(common.CodeExport, "xlsx write", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"review_rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile renders the workbook and writes it to path, creating parent directories.
func (s *Service) WriteFile(ctx context.Context, path string, txs []entity.Transaction, items []review.Item, withSummary bool) error {
	b, err := s.ExportXLSX(ctx, txs, items, withSummary)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.NewAppError(common.CodeExport, "create output dir", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return common.NewAppError(common.CodeExport, "write "+filepath.Base(path), err)
	}
	s.logger.Info("export.file.written", "path", path, "bytes", len(b))
	return nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet, color string, headers ...any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeRow(f, sheet, 1, headers...); err != nil {
		return err
	}
	style, err := headerStyle(f, color)
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeTransactions(f *excelize.File, txs []entity.Transaction) error {
	if err := writeHeader(f, SheetTransactions, "E6E6E6",
		"File Name", "Date", "Amount", "Category", "Description", "Vendor", "Needs Review"); err != nil {
		return err
	}
	for i, t := range txs {
		var amount any = ""
		if t.Amount != nil {
			amount = *t.Amount
		}
		if err := writeRow(f, SheetTransactions, i+2,
			filepath.Base(t.FilePath), deref(t.Date), amount, t.Category, t.Description, deref(t.Vendor), t.NeedsReview); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetTransactions, "A", "A", 28)
	_ = f.SetColWidth(SheetTransactions, "B", "C", 12)
	_ = f.SetColWidth(SheetTransactions, "D", "D", 26)
	_ = f.SetColWidth(SheetTransactions, "E", "F", 40)
	return nil
}

func writeReview(f *excelize.File, items []review.Item) error {
	if err := writeHeader(f, SheetReview, "FFE6E6",
		"File", "Reason", "Suggested Date", "Suggested Amount", "Suggested Category", "Raw Snippet"); err != nil {
		return err
	}
	for i, it := range items {
		var amount any = ""
		if it.SuggestedAmount != nil {
			amount = *it.SuggestedAmount
		}
		if err := writeRow(f, SheetReview, i+2,
			filepath.Base(it.FilePath), it.Reason, deref(it.SuggestedDate), amount, it.SuggestedCategory, it.RawSnippet); err != nil {
			return err
		}
	}
	for i, w := range []float64{25, 40, 12, 12, 20, 60} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SheetReview, col, col, w)
	}
	return nil
}

type bucket struct {
	key   string
	count int
	total int64
}

func group(txs []entity.Transaction, key func(entity.Transaction) (string, bool)) []bucket {
	idx := map[string]int{}
	var out []bucket
	for _, t := range txs {
		k, ok := key(t)
		if !ok {
			continue
		}
		i, seen := idx[k]
		if !seen {
			i = len(out)
			idx[k] = i
			out = append(out, bucket{key: k})
		}
		out[i].count++
		if t.Amount != nil {
			out[i].total += *t.Amount
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].key < out[b].key })
	return out
}

func writeSummary(f *excelize.File, txs []entity.Transaction) error {
	const sheet = SheetSummary
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if len(txs) == 0 {
		return f.SetCellValue(sheet, "A1", "No transactions to summarize")
	}

	var total int64
	for _, t := range txs {
		if t.Amount != nil {
			total += *t.Amount
		}
	}
	row := 1
	put := func(values ...any) error {
		err := writeRow(f, sheet, row, values...)
		row++
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	heading := func(title string) error {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := put(title); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, bold)
	}

	steps := []func() error{
		func() error { return heading("Transaction Summary") },
		func() error { row++; return nil },
		func() error { return put("Total Transactions:", len(txs)) },
		func() error { return put("Total Amount:", "¥"+review.Yen(total)) },
		func() error { return put("Average Amount:", "¥"+review.Yen(roundDiv(total, int64(len(txs))))) },
		func() error { row += 2; return heading("By Category:") },
		func() error { return put("Category", "Count", "Total Amount") },
	}
	for _, b := range group(txs, func(t entity.Transaction) (string, bool) { return t.Category, true }) {
		steps = append(steps, func() error { return put(b.key, b.count, "¥"+review.Yen(b.total)) })
	}
	steps = append(steps,
		func() error { row++; return heading("By Month:") },
		func() error { return put("Month", "Count", "Total Amount") },
	)
	for _, b := range group(txs, monthOf) {
		steps = append(steps, func() error { return put(b.key, b.count, "¥"+review.Yen(b.total)) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 26)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	return nil
}

func monthOf(t entity.Transaction) (string, bool) {
	if t.Date == nil {
		return "", false
	}
	d, err := time.Parse(time.DateOnly, *t.Date)
	if err != nil {
		return "", false
	}
	return d.Format("2006-01"), true
}

func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
