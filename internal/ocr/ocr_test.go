package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

type stubRunner struct {
	calls   []string
	outputs map[string]string
	fail    map[string]bool
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if s.fail[name] {
		return nil, []byte(name + " exploded"), errors.New("exit status 1")
	}
	if name == "pdftoppm" {
		prefix := args[len(args)-1]
		for _, n := range []string{"-1.png", "-2.png"} {
			if err := os.WriteFile(prefix+n, []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(s.outputs[name]), nil, nil
}

const receiptText = "セブンイレブン千代田店\n2024年10月30日\nおにぎり ¥150\nお茶 ¥140\n合計 ¥390"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestExtract_TextFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "r.txt", receiptText+"\r\n\r\n\r\n")
	r := &stubRunner{}

	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, receiptText, res.Text)
	assert.Equal(t, EmbeddedTextConfidence, res.Confidence)
	assert.Equal(t, "TXT", res.SourceType)
	assert.Equal(t, "text", res.Method)
	assert.Empty(t, r.calls)
}

func TestExtract_SidecarJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "r.json", `{"full_text":"ローソン\\n合計 ¥500","confidence":0.62}`)

	res, err := NewExtractor(Config{}, nil, WithRunner(&stubRunner{})).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "ローソン\n合計 ¥500", res.Text)
	assert.InDelta(t, 0.62, res.Confidence, 1e-9)
	assert.Equal(t, "sidecar", res.Method)
}

func TestExtract_SidecarPages(t *testing.T) {
	p := writeFile(t, t.TempDir(), "r.json", `{"pages":[{"text":"a"},{"text":"b"}],"confidence":1.7}`)

	res, err := NewExtractor(Config{}, nil).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestExtract_PreferSidecar(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "r.jpg", "jpg")
	writeFile(t, dir, "r.json", `{"full_text":"cached","confidence":0.8}`)
	r := &stubRunner{outputs: map[string]string{"tesseract": "fresh"}}

	res, err := NewExtractor(Config{PreferSidecar: true}, nil, WithRunner(r)).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "cached", res.Text)
	assert.Equal(t, "IMAGE", res.SourceType)
	assert.Empty(t, r.calls)

	res, err = NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Text)
}

func TestExtract_PDFTextLayer(t *testing.T) {
	layer := strings.Repeat("株式会社テスト商事 請求書 2024年10月30日\n", 5) + "\f"
	r := &stubRunner{outputs: map[string]string{"pdftotext": layer}}

	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), "/in/invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, EmbeddedTextConfidence, res.Confidence)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{"pdftotext"}, r.calls)
}

func TestExtract_PDFFallsBackToOCR(t *testing.T) {
	r := &stubRunner{outputs: map[string]string{"pdftotext": "\f", "tesseract": receiptText}}

	res, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), "/in/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, receiptText+"\n\n"+receiptText, res.Text)
	assert.Equal(t, []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"}, r.calls)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestExtract_ImageWithTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t10\t10\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\t合計\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\t¥390\n"
	r := &multiRunner{stubRunner: stubRunner{}, byLast: map[string]string{"tsv": tsv, "": receiptText}}

	res, err := NewExtractor(Config{EnableTSVConfidence: true}, nil, WithRunner(r)).Extract(context.Background(), "/in/r.png")
	require.NoError(t, err)
	want := 0.7*0.8 + 0.3*heuristicConfidence(receiptText)
	assert.InDelta(t, want, res.Confidence, 1e-9)
	assert.Equal(t, "jpn", res.Language)
}

// multiRunner answers tesseract by its last argument.
type multiRunner struct {
	stubRunner
	byLast map[string]string
}

func (m *multiRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if last := args[len(args)-1]; last == "tsv" {
		return []byte(m.byLast["tsv"]), nil, nil
	}
	return []byte(m.byLast[""]), nil, nil
}

func TestExtract_Errors(t *testing.T) {
	r := &stubRunner{fail: map[string]bool{"tesseract": true}}
	_, err := NewExtractor(Config{}, nil, WithRunner(r)).Extract(context.Background(), "/in/r.png")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeOCR))

	p := writeFile(t, t.TempDir(), "blank.txt", " \n\n ")
	_, err = NewExtractor(Config{}, nil).Extract(context.Background(), p)
	assert.ErrorIs(t, err, common.ErrNoText)

	_, err = NewExtractor(Config{}, nil, WithRunner(&stubRunner{})).Extract(context.Background(), "/in/r.heic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEIC not supported")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewExtractor(Config{}, nil).Extract(ctx, "/in/r.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasUsableText(t *testing.T) {
	assert.False(t, hasUsableText(""))
	assert.False(t, hasUsableText(strings.Repeat("x", 50)))
	assert.True(t, hasUsableText(strings.Repeat("領収書 ご利用ありがとうございました 合計 ¥1,200\n", 4)))
	assert.False(t, hasUsableText(strings.Repeat("\x01\x02\x03\x04\x05a\n", 40)))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b\n\nc", Normalize("a\t\tb  \r\n\r\n\r\n\r\nc  "))
	assert.Equal(t, "合計 ¥01", Normalize("合計 ¥01"))
	assert.Equal(t, "", Normalize(""))
}

func TestHeuristicConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, heuristicConfidence("hello"), 1e-9)
	assert.Greater(t, heuristicConfidence(receiptText), 0.7)
	assert.LessOrEqual(t, heuristicConfidence(strings.Repeat(receiptText, 5)), 1.0)
}

func TestToolError(t *testing.T) {
	assert.NoError(t, toolError(context.Background(), "tesseract", nil, nil))

	failed := toolError(context.Background(), "pdftoppm", []byte("Syntax Error: Couldn't read xref table\nmore\n"), errors.New("exit status 1"))
	assert.EqualError(t, failed, "pdftoppm: Syntax Error: Couldn't read xref table: exit status 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	killed := toolError(ctx, "tesseract", nil, errors.New("signal: killed"))
	assert.ErrorIs(t, killed, context.Canceled)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, _, err := execRunner{}.Run(context.Background(), "rx-no-such-ocr-tool", slog.Default(), "--version")
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeConfig))
	assert.Contains(t, err.Error(), "rx-no-such-ocr-tool is not installed")
}
