package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Each pattern pairs a tax marker with the number it qualifies.
var taxContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`消費税等.*?¥?\s*` + numberExpr),
	regexp.MustCompile(numberExpr + `.*消費税等`),
	regexp.MustCompile(`10%.*?¥?\s*` + numberExpr),
	regexp.MustCompile(numberExpr + `.*10%`),
	regexp.MustCompile(`税額.*?¥?\s*` + numberExpr),
	regexp.MustCompile(numberExpr + `.*税額`),
}

var looseNumber = regexp.MustCompile(`[0-9][0-9,]*`)

var contextTotalIndicators = []string{"税込合計", "合計", "小計", "総計", "total"}

const (
	smallTaxCeiling      = 200
	averageTaxRatio      = 0.3
	totalLineTaxCeiling  = 300
	ultraMinAmount       = 100
	ultraAdjacentMinimum = 1000
	ultraProximityRunes  = 50
	ultraContextWindow   = 30
)

// isTaxAmount reports whether amount, printed on line idx, is a consumption
// tax figure rather than a total.
func (r *AmountRules) isTaxAmount(amount int64, ctx *ReceiptContext, idx int) bool {
	line := ctx.line(idx)
	lower := strings.ToLower(line)

	indicators := r.TaxKeywords
	if containsAny(line, r.TaxRateMarkers) {
		// "10%対象" is the tax-inclusive base, not the tax.
		if strings.Contains(line, "対象") || strings.Contains(lower, "target") {
			return false
		}
		indicators = append(indicators[:len(indicators):len(indicators)], r.TaxRateMarkers...)
	}
	if r.hasTotalContext(line) {
		return false
	}
	if strings.HasSuffix(strings.TrimSpace(line), "-") ||
		strings.Contains(line, "¥"+strconv.FormatInt(amount, 10)+"-") {
		return false
	}

	for _, re := range taxContextPatterns {
		if m := re.FindStringSubmatch(line); m != nil && parseDigits(m[1]) == amount {
			return true
		}
	}
	if containsAny(line, indicators) {
		return true
	}

	if idx > 0 && containsAny(ctx.line(idx-1), r.NeighbourTaxKeywords) {
		if containsAny(line, contextTotalIndicators) || containsAny(ctx.line(idx+1), contextTotalIndicators) {
			return false
		}
		avg, ok := averageAmount(ctx.Lines, r.MinAmount, r.MaxAmount)
		if !ok {
			return true
		}
		return float64(amount) < avg*averageTaxRatio
	}

	if containsAny(ctx.line(idx+1), r.NeighbourTaxKeywords) {
		return true
	}

	if amount <= smallTaxCeiling {
		plain := strconv.FormatInt(amount, 10)
		lo, hi := max(0, idx-2), min(len(ctx.Lines), idx+3)
		occurrences := 0
		for i := lo; i < hi; i++ {
			if strings.Contains(ctx.Lines[i], plain) {
				occurrences++
			}
		}
		if occurrences >= 2 && containsAny(strings.Join(ctx.Lines[lo:hi], " "), indicators) {
			return true
		}
	}
	return false
}

// hasTotalContext reports whether line names a total, either through a total
// indicator or one of the total keywords (お買上げ, お支払金額, ...).
// Single-rune keywords are too loose to count.
func (r *AmountRules) hasTotalContext(line string) bool {
	if containsAny(strings.ToLower(line), r.TotalIndicators) {
		return true
	}
	for _, kw := range r.TotalKeywords {
		if utf8.RuneCountInString(kw.Term) > 1 && strings.Contains(line, kw.Term) {
			return true
		}
	}
	return false
}

// couldBeTaxOnTotalLine flags a number on a 合計 line that may be the tax
// printed beside the total.
func couldBeTaxOnTotalLine(amount int64, line string) bool {
	if amount <= totalLineTaxCeiling && containsAny(line, []string{"消費税", "税", "10%", "8%"}) {
		return true
	}
	return strings.Contains(line, "合計") && containsAny(line, []string{"消費税", "税額", "10%"})
}

// validateUltra checks that an amount really belongs to a transaction keyword
// such as 利用金額 before it receives the top bonus.
func (r *AmountRules) validateUltra(amount int64, keyword, amountLine, keywordLine string, pos Position) bool {
	plain := strconv.FormatInt(amount, 10)
	comma := formatComma(amount)
	yen := []string{"¥" + plain, plain + "円"}

	if pos == PositionCurrent {
		kwPos := runeIndex(keywordLine, keyword)
		found := false
		for _, f := range []string{"¥" + plain, plain + "円", comma, "¥" + comma} {
			if p := runeIndex(amountLine, f); p >= 0 && abs(p-kwPos) <= ultraProximityRunes {
				found = true
				break
			}
		}
		if !found {
			rs := []rune(amountLine)
			start := max(0, kwPos)
			end := min(len(rs), start+len([]rune(keyword))+ultraContextWindow)
			window := ""
			if start < end {
				window = string(rs[start:end])
			}
			if !containsAny(window, []string{":", " "}) || !strings.Contains(window, plain) {
				return false
			}
		}
	}

	if containsAny(strings.ToLower(amountLine), r.SuspiciousMarkers) {
		return false
	}
	if amount < ultraMinAmount && (pos != PositionCurrent || !containsAny(amountLine, yen)) {
		return false
	}
	if pos != PositionCurrent {
		if containsAny(amountLine, r.CompetingKeywords) {
			return false
		}
		if !containsAny(amountLine, append(yen, comma)) && amount < ultraAdjacentMinimum {
			return false
		}
	}
	return true
}

func averageAmount(lines []string, lo, hi int64) (float64, bool) {
	var sum float64
	n := 0
	for _, ln := range lines {
		for _, s := range looseNumber.FindAllString(ln, -1) {
			v := parseDigits(s)
			if v >= lo && v <= hi {
				sum += float64(v)
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// parseDigits drops separators and returns -1 when nothing numeric is left.
func parseDigits(s string) int64 {
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return v
}

func runeIndex(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return len([]rune(s[:i]))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
