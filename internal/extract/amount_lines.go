package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// numberExpr accepts "1,540", "1, 738" and plain digit runs.
const numberExpr = `(\d{1,3}(?:,\s?\d{3})+|\d+)`

type amountPattern struct {
	name string
	re   *regexp.Regexp
	// bare numbers go through the suspicious-number filter.
	bare bool
	// yenBoundary requires whitespace, 円 or end of line after the number.
	yenBoundary bool
}

var amountPatterns = []amountPattern{
	{name: "total", re: regexp.MustCompile(`合\s?計\s*:?\s*¥?\s*` + numberExpr)},
	{name: "yen", re: regexp.MustCompile(`¥\s*` + numberExpr), yenBoundary: true},
	{name: "en", re: regexp.MustCompile(numberExpr + `\s*円`)},
	{name: "yen_dash", re: regexp.MustCompile(`¥\s*` + numberExpr + `-?`)},
	{name: "grand_total", re: regexp.MustCompile(`(?:総計|総合計|お買上げ|税込合計)\s*:?\s*¥?\s*` + numberExpr)},
	{name: "before_total", re: regexp.MustCompile(numberExpr + `\s*(?:合計|総計|総合計|お買上げ)`)},
	{name: "bare", re: regexp.MustCompile(numberExpr + `\)?`), bare: true},
}

const (
	totalPatternConfidence = 100
	commaBonus             = 5
	parenthesisPenalty     = 300
	bareMinDigits          = 3
	bareMaxDigits          = 7
)

// Numbers captured by these are identifiers, phone fragments, postal codes,
// clock times or item counts and never money.
var nonAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`登録番号:?\s*([0-9]+)`),
	regexp.MustCompile(`登録No:?\s*([0-9]+)`),
	regexp.MustCompile(`取引番号:?\s*([0-9]+)`),
	regexp.MustCompile(`ID:?\s*([0-9]+)`),
	regexp.MustCompile(`番号:?\s*([0-9]+)`),
	regexp.MustCompile(`(?i)(?:tel|電話|phone):?\s*([0-9-]+)`),
	regexp.MustCompile(`(\d{3})-\d{4}-\d{4}`),
	regexp.MustCompile(`(\d{4})-\d{4}`),
	regexp.MustCompile(`口座:?\s*([0-9]+)`),
	regexp.MustCompile(`参照:?\s*([0-9]+)`),
	regexp.MustCompile(`郵便番号:?\s*([0-9-]+)`),
	regexp.MustCompile(`〒\s*([0-9-]+)`),
	regexp.MustCompile(`(\d+)時\d+分`),
	regexp.MustCompile(`(\d+):\d+`),
	regexp.MustCompile(`第(\d+)号`),
	regexp.MustCompile(`No\.(\d+)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(\d+)\s*(?:点|個|品)`),
}

var pureTaxRateLine = regexp.MustCompile(`^\d+\s*(?:8|10)%$`)

var (
	phoneIndicators   = []string{"tel", "電話", "phone", "fax", "ファックス"}
	phonePrefixes     = []string{"080-", "090-", "070-", "050-", "03-", "06-"}
	metadataTerms     = []string{"取引", "証学書", "システム", "番号", "注文番号", "伝票", "端末", "バージョン", "コード", "時間", "店舗"}
	metadataWords     = regexp.MustCompile(`(?i)\b(?:pos|system|id|no|version|ver|code)\b`)
	technicalLine     = regexp.MustCompile(`^[A-Za-z0-9\-.]+$`)
	yearContext       = []string{"年", "月", "日", "-", "/", "時", "分"}
	suspiciousPrefix  = []string{"登録", "id", "no.", "no:", "tel", "電話", "phone", "番号", "口座", "取引", "参照", "郵便", "〒", "#", "第", "080-", "090-", "070-", "050-", "03-", "06-", "011-", "052-", "092-"}
	suspiciousSuffix  = []string{"号", "番", "id", "no", "tel", "時", "分", "秒"}
	idIndicators      = []string{"登録番号", "取引番号", "registration", "id:", "tel:", "電話番号"}
	calendarIndicator = []string{"年", "月", "日"}
)

// lineAmount is one money-like number found on a line.
type lineAmount struct {
	Value      int64
	Confidence int
	Pattern    string
}

// extractLineAmounts returns the plausible amounts on a single line, one entry
// per distinct value, keeping the most confident pattern for each.
func (r *AmountRules) extractLineAmounts(line string) []lineAmount {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || pureTaxRateLine.MatchString(trimmed) {
		return nil
	}
	excluded := nonAmountNumbers(line)
	lower := strings.ToLower(line)

	var out []lineAmount
	seen := make(map[int64]int)
	for idx, p := range amountPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(line, -1) {
			numStart, numEnd := m[2], m[3]
			raw := line[numStart:numEnd]
			digits := strings.NewReplacer(",", "", " ", "").Replace(raw)
			amount, err := strconv.ParseInt(digits, 10, 64)
			if err != nil || amount < r.MinAmount || amount > r.MaxAmount {
				continue
			}
			if p.yenBoundary && !yenBoundaryAfter(line[m[1]:]) {
				continue
			}
			if p.bare && (len(digits) < bareMinDigits || len(digits) > bareMaxDigits) {
				continue
			}
			if excluded[amount] || isPhoneFragment(amount, lower) || isSystemMetadata(amount, line, lower) {
				continue
			}
			if amount >= 2020 && amount <= 2030 && containsAny(line, yearContext) {
				continue
			}
			if p.bare && r.isSuspiciousBare(amount, line, numStart, numEnd) {
				continue
			}

			conf := 20 - idx*2
			if idx == 0 {
				conf = totalPatternConfidence
			}
			if strings.Contains(raw, ",") && len(raw) > 3 {
				conf += commaBonus
			}
			if insideParentheses(line, numStart, numEnd) {
				conf -= parenthesisPenalty
			}

			if i, ok := seen[amount]; ok {
				if conf > out[i].Confidence {
					out[i].Confidence = conf
					out[i].Pattern = p.name
				}
				continue
			}
			seen[amount] = len(out)
			out = append(out, lineAmount{Value: amount, Confidence: conf, Pattern: p.name})
		}
	}
	return out
}

func yenBoundaryAfter(rest string) bool {
	if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
		return true
	}
	return strings.HasPrefix(rest, "円")
}

func nonAmountNumbers(line string) map[int64]bool {
	out := make(map[int64]bool)
	for _, re := range nonAmountPatterns {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			s := strings.ReplaceAll(strings.ReplaceAll(m[1], "-", ""), ",", "")
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				out[n] = true
			}
		}
	}
	return out
}

func isPhoneFragment(amount int64, lower string) bool {
	if !containsAny(lower, phoneIndicators) {
		return false
	}
	s := regexp.QuoteMeta(strconv.FormatInt(amount, 10))
	tail := `(?:\s*-|$)`
	for _, expr := range []string{
		`tel\s*[0-9\-\s]*` + s + tail,
		`電話\s*[0-9\-\s]*` + s + tail,
		`[0-9]{2,3}-[0-9]{3,4}-` + s + tail,
		`[0-9]{3,4}-` + s + tail,
	} {
		if regexp.MustCompile(expr).MatchString(lower) {
			return true
		}
	}
	plain := strconv.FormatInt(amount, 10)
	for _, prefix := range phonePrefixes {
		if i := strings.Index(lower, prefix); i >= 0 {
			after := lower[i:]
			if len(after) > 20 {
				after = after[:20]
			}
			if strings.Contains(after, plain) {
				return true
			}
		}
	}
	return false
}

func isSystemMetadata(amount int64, line, lower string) bool {
	if containsAny(line, metadataTerms) || metadataWords.MatchString(lower) {
		return true
	}
	trimmed := strings.TrimSpace(line)
	if amount >= 1000 && isAllDigits(trimmed) {
		return true
	}
	return technicalLine.MatchString(trimmed) && len(trimmed) > 10
}

// isSuspiciousBare rejects a bare number that sits next to identifier words,
// lacks money context, or looks like a year.
func (r *AmountRules) isSuspiciousBare(amount int64, line string, start, end int) bool {
	before := []rune(strings.ToLower(line[:start]))
	after := []rune(strings.ToLower(line[end:]))
	if len(before) > 10 {
		before = before[len(before)-10:]
	}
	if len(after) > 5 {
		after = after[:5]
	}
	if containsAny(string(before), suspiciousPrefix) || containsAny(string(after), suspiciousSuffix) {
		return true
	}
	lower := strings.ToLower(line)
	if containsAny(lower, idIndicators) {
		return true
	}
	if amount < 1000 && !containsAny(lower, r.AmountContext) {
		return true
	}
	return amount >= 1900 && amount <= 2100 && containsAny(lower, calendarIndicator)
}

// insideParentheses reports whether the number at [start,end) is enclosed by
// an open parenthesis before it or a closing one after it.
func insideParentheses(line string, start, end int) bool {
	before := line[:start]
	if open := strings.LastIndex(before, "("); open >= 0 && !strings.Contains(before[open:], ")") {
		return true
	}
	after := line[end:]
	if cl := strings.Index(after, ")"); cl >= 0 && !strings.Contains(after[:cl], "(") {
		return true
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// formatComma renders n with thousands separators.
func formatComma(n int64) string {
	if n < 0 {
		return "-" + formatComma(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
