package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ReceiptContext is the text of one document, split into lines.
// It is built once per document and never mutated afterwards.
type ReceiptContext struct {
	FullText string
	Lines    []string
}

// NewReceiptContext folds compatibility characters (full-width digits, ￥, ：, （）)
// to their plain forms and splits the text into trimmed lines. Blank lines are kept
// so that line adjacency matches the printed receipt.
func NewReceiptContext(text string) *ReceiptContext {
	folded := norm.NFKC.String(text)
	folded = strings.ReplaceAll(folded, "\r\n", "\n")
	folded = strings.ReplaceAll(folded, "\r", "\n")

	raw := strings.Split(folded, "\n")
	lines := make([]string, len(raw))
	for i, ln := range raw {
		lines[i] = strings.TrimSpace(ln)
	}
	return &ReceiptContext{FullText: folded, Lines: lines}
}

// line returns the i-th line or "" when i is out of range.
func (c *ReceiptContext) line(i int) string {
	if i < 0 || i >= len(c.Lines) {
		return ""
	}
	return c.Lines[i]
}

// Result is the output of a single field extractor.
type Result[T any] struct {
	Value      T
	Confidence float64
	Source     string
	Meta       map[string]any
}

// DateField, AmountField and VendorField are the per-field extractor contracts.
// A nil result means the field is absent, which is not an error.
type DateField interface {
	Extract(ctx *ReceiptContext) *Result[string]
}

type AmountField interface {
	Extract(ctx *ReceiptContext) *Result[int64]
}

type VendorField interface {
	Extract(ctx *ReceiptContext) *Result[string]
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func firstContained(s string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}
