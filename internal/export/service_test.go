package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

func ptr[T any](v T) *T { return &v }

func fixtures() ([]entity.Transaction, []review.Item) {
	failed := "pdftoppm: exit status 1"
	txs := []entity.Transaction{
		{
			FilePath:    "/in/taxi.pdf",
			Date:        ptr("2024-10-30"),
			Amount:      ptr(int64(390)),
			Vendor:      ptr("Nihon Kotsu"),
			Category:    string(constants.Travel),
			Description: "Nihon Kotsu - taxi",
			Status:      constants.StatusSucceeded,
		},
		{
			FilePath:    "/in/office.jpg",
			Date:        ptr("2024-11-02"),
			Amount:      ptr(int64(1200)),
			Category:    string(constants.Rent),
			Description: "monthly desk",
			Status:      constants.StatusReview,
			NeedsReview: true,
		},
		{
			FilePath: "/in/broken.pdf",
			Status:   constants.StatusFailed,
			Error:    &failed,
		},
	}
	items := []review.Item{
		{FilePath: "/in/office.jpg", Reason: "low category confidence (0.40)", SuggestedDate: ptr("2024-11-02"), SuggestedAmount: ptr(int64(1200)), SuggestedCategory: "Rent", RawSnippet: "desk"},
		{FilePath: "/in/broken.pdf", Reason: "processing failed: " + failed},
	}
	return txs, items
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func TestExportXLSX(t *testing.T) {
	txs, items := fixtures()
	b, err := NewService(nil).ExportXLSX(context.Background(), txs, items, true)
	require.NoError(t, err)

	f := open(t, b)
	assert.Equal(t, []string{SheetTransactions, SheetReview, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two non-failed documents")
	assert.Equal(t, []string{"File Name", "Date", "Amount", "Category", "Description", "Vendor", "Needs Review"}, rows[0])
	assert.Equal(t, []string{"taxi.pdf", "2024-10-30", "390", "travel", "Nihon Kotsu - taxi", "Nihon Kotsu"}, rows[1][:6])
	assert.Equal(t, "office.jpg", rows[2][0])
	assert.Equal(t, "", rows[2][5])

	rows, err = f.GetRows(SheetReview)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Suggested Amount", rows[0][3])
	assert.Equal(t, []string{"office.jpg", "low category confidence (0.40)", "2024-11-02", "1200", "Rent", "desk"}, rows[1])
	assert.Equal(t, "broken.pdf", rows[2][0])

	assert.Equal(t, "Transaction Summary", cell(t, f, SheetSummary, "A1"))
	assert.Equal(t, "2", cell(t, f, SheetSummary, "B3"))
	assert.Equal(t, "¥1,590", cell(t, f, SheetSummary, "B4"))
	assert.Equal(t, "¥795", cell(t, f, SheetSummary, "B5"))
	assert.Equal(t, "By Category:", cell(t, f, SheetSummary, "A8"))
	assert.Equal(t, "Rent", cell(t, f, SheetSummary, "A10"))
	assert.Equal(t, "travel", cell(t, f, SheetSummary, "A11"))
	assert.Equal(t, "¥390", cell(t, f, SheetSummary, "C11"))
	assert.Equal(t, "By Month:", cell(t, f, SheetSummary, "A13"))
	assert.Equal(t, "2024-10", cell(t, f, SheetSummary, "A15"))
	assert.Equal(t, "2024-11", cell(t, f, SheetSummary, "A16"))
	assert.Equal(t, "¥1,200", cell(t, f, SheetSummary, "C16"))
}

func TestExportXLSX_EmptySummary(t *testing.T) {
	b, err := NewService(nil).ExportXLSX(context.Background(), nil, nil, true)
	require.NoError(t, err)
	f := open(t, b)
	assert.Equal(t, "No transactions to summarize", cell(t, f, SheetSummary, "A1"))

	b, err = NewService(nil).ExportXLSX(context.Background(), nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{SheetTransactions, SheetReview}, open(t, b).GetSheetList())
}

func TestExportXLSX_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(nil).ExportXLSX(ctx, nil, nil, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFile(t *testing.T) {
	txs, items := fixtures()
	path := filepath.Join(t.TempDir(), "out", "receipts.xlsx")
	require.NoError(t, NewService(nil).WriteFile(context.Background(), path, txs, items, false))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SheetTransactions, "A2")
	require.NoError(t, err)
	assert.Equal(t, "taxi.pdf", v)
}
