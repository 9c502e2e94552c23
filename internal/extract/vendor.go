package extract

import (
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chain maps a name fragment found in the text to a display name.
type Chain struct {
	Match   string
	Display string
}

// DefaultChains lists the national chains that are common on receipts.
func DefaultChains() []Chain {
	return []Chain{
		{"セブンイレブン", "Seven-Eleven"},
		{"ファミリーマート", "FamilyMart"},
		{"ローソン", "Lawson"},
		{"スターバックス", "Starbucks"},
		{"ドトール", "Doutor"},
		{"イケア", "IKEA"},
		{"マクドナルド", "McDonald's"},
		{"ケンタッキー", "KFC"},
		{"ヨドバシカメラ", "Yodobashi Camera"},
		{"ビックカメラ", "Bic Camera"},
		{"starbucks", "Starbucks"},
		{"ikea", "Ikea"},
		{"seven-eleven", "Seven-Eleven"},
		{"familymart", "Familymart"},
		{"lawson", "Lawson"},
	}
}

type businessPattern struct {
	kind string
	re   *regexp.Regexp
	base int
}

var businessPatterns = []businessPattern{
	{"corporation", regexp.MustCompile(`株式会社.+`), 90},
	{"limited_company", regexp.MustCompile(`有限会社.+`), 85},
	{"store", regexp.MustCompile(`.*店.*`), 80},
	{"branch", regexp.MustCompile(`.*支店.*`), 75},
	{"dou", regexp.MustCompile(`.*堂.*`), 70},
	{"ya", regexp.MustCompile(`.*屋.*`), 65},
	{"seven_eleven", regexp.MustCompile(`セブン.*イレブン`), 95},
	{"jr", regexp.MustCompile(`JR.*`), 60},
	{"starbucks", regexp.MustCompile(`スターバックス.*`), 95},
}

var vendorExclude = regexp.MustCompile(`\d{4}年|\d{4}/|\d{4}-|[0-9,]+円|領収|レシート|合計|小計|税込|税抜`)

const (
	chainConfidence   = 0.95
	patternCap        = 0.9
	vendorScanLines   = 5
	fallbackScanLines = 3
	minVendorRunes    = 3
	maxVendorRunes    = 50
)

type VendorOption func(*VendorExtractor)

// WithChains replaces the known-chain table.
func WithChains(c []Chain) VendorOption {
	return func(e *VendorExtractor) { e.chains = c }
}

type VendorExtractor struct {
	logger *slog.Logger
	chains []Chain
}

func NewVendorExtractor(logger *slog.Logger, opts ...VendorOption) *VendorExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &VendorExtractor{logger: logger, chains: DefaultChains()}
	for _, o := range opts {
		o(e)
	}
	return e
}

type vendorCandidate struct {
	name       string
	confidence float64
	line       string
	kind       string
	lineIdx    int
}

func (e *VendorExtractor) Extract(ctx *ReceiptContext) *Result[string] {
	lower := strings.ToLower(ctx.FullText)
	for _, c := range e.chains {
		if strings.Contains(lower, strings.ToLower(c.Match)) {
			e.logger.Debug("extract.vendor.chain", "vendor", c.Display)
			return &Result[string]{
				Value:      c.Display,
				Confidence: chainConfidence,
				Source:     "chain",
				Meta:       map[string]any{"type": "chain", "match": c.Match},
			}
		}
	}

	lines := nonEmpty(ctx.Lines)
	var best *vendorCandidate
	for i, line := range head(lines, vendorScanLines) {
		if vendorExclude.MatchString(line) {
			continue
		}
		for _, p := range businessPatterns {
			m := p.re.FindString(line)
			name := strings.TrimSpace(m)
			if utf8.RuneCountInString(name) < minVendorRunes {
				continue
			}
			conf := float64(p.base+max(0, 10-i*2)) / 100.0
			if best == nil || conf > best.confidence {
				best = &vendorCandidate{name: name, confidence: conf, line: line, kind: p.kind, lineIdx: i}
			}
		}
	}

	if best == nil {
		for i, line := range head(lines, fallbackScanLines) {
			if vendorExclude.MatchString(line) {
				continue
			}
			if n := utf8.RuneCountInString(line); n < minVendorRunes || n > maxVendorRunes {
				continue
			}
			best = &vendorCandidate{
				name:       line,
				confidence: math.Max(0.3, 0.7-float64(i)*0.2),
				line:       line,
				kind:       "fallback",
				lineIdx:    i,
			}
			break
		}
	}

	if best == nil {
		e.logger.Debug("extract.vendor.none")
		return nil
	}
	return &Result[string]{
		Value:      best.name,
		Confidence: math.Min(patternCap, best.confidence),
		Source:     snippet(best.line, 50),
		Meta:       map[string]any{"type": best.kind, "line_idx": best.lineIdx},
	}
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}
