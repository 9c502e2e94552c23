package extract

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type dateLayout int

const (
	layoutYMD dateLayout = iota
	layoutMD
	layoutEra
)

type datePattern struct {
	name     string
	re       *regexp.Regexp
	priority int
	layout   dateLayout
}

// Ordered by the position in which the receipts usually print them; the base
// priority reflects how much a format can be trusted on its own.
var datePatterns = []datePattern{
	{"japanese_full", regexp.MustCompile(`(\d{4})年\s*(\d{1,2})月\s*(\d{1,2})日`), 10, layoutYMD},
	{"japanese_compact", regexp.MustCompile(`(\d{4})年(\d{2})月(\d{2})日`), 9, layoutYMD},
	{"japanese_short", regexp.MustCompile(`(\d{2})年\s*(\d{1,2})月\s*(\d{1,2})日`), 8, layoutYMD},
	{"slash", regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`), 7, layoutYMD},
	{"dash", regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), 7, layoutYMD},
	{"ticket", regexp.MustCompile(`(\d{4})\s*-\s*(\d{1,2})\.(\d{1,2})`), 6, layoutYMD},
	{"dot", regexp.MustCompile(`(\d{2})\.(\d{1,2})\.(\d{1,2})`), 5, layoutYMD},
	{"dot_dash", regexp.MustCompile(`(\d{2})\.-(\d{1,2})\.(\d{1,2})`), 5, layoutYMD},
	{"short_slash", regexp.MustCompile(`(\d{2})/(\d{1,2})/(\d{1,2})`), 4, layoutYMD},
	{"month_day", regexp.MustCompile(`(\d{1,2})月\s*(\d{1,2})日`), 3, layoutMD},
	{"wareki", regexp.MustCompile(`(令和|平成|昭和)(\d{1,2})年\s*(\d{1,2})月\s*(\d{1,2})日`), 12, layoutEra},
}

// eraOffsets maps an era name to the Gregorian year of its year zero.
var eraOffsets = map[string]int{
	"令和": 2018,
	"平成": 1988,
	"昭和": 1925,
}

type dateKeyword struct {
	term   string
	weight int
}

var dateKeywords = []dateKeyword{
	{"invoice date", 50}, {"invoice", 50}, {"発行", 50}, {"領収", 50},
	{"日付", 50}, {"年月日", 50}, {"取引日", 50},
	{"due date", 10}, {"to date", 10}, {"from date", 10},
}

const (
	minDateYear       = 2000
	twoDigitYearPivot = 30
)

type DateOption func(*DateExtractor)

// WithClock overrides the processing clock used for year inference and the
// validity window.
func WithClock(now func() time.Time) DateOption {
	return func(e *DateExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMonthCorrection replaces the post-selection OCR correction. Passing nil
// disables it.
func WithMonthCorrection(c *MonthCorrection) DateOption {
	return func(e *DateExtractor) { e.correction = c }
}

type DateExtractor struct {
	logger     *slog.Logger
	now        func() time.Time
	correction *MonthCorrection
}

func NewDateExtractor(logger *slog.Logger, opts ...DateOption) *DateExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &DateExtractor{
		logger:     logger,
		now:        time.Now,
		correction: DefaultMonthCorrection(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type dateCandidate struct {
	date     time.Time
	priority int
	line     string
	match    string
	pattern  string
}

// Extract returns the best scored calendar date as YYYY-MM-DD, or nil.
func (e *DateExtractor) Extract(ctx *ReceiptContext) *Result[string] {
	now := e.now()
	var best *dateCandidate

	for idx, line := range ctx.Lines {
		if line == "" {
			continue
		}
		for _, p := range datePatterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(line, -1) {
				d, ok := resolveDate(p.layout, line, m, now.Year())
				if !ok || !withinWindow(d, now) {
					continue
				}
				pos := utf8.RuneCountInString(line[:m[0]])
				prio := p.priority + keywordProximity(ctx.Lines, idx, pos)
				if best == nil || prio > best.priority {
					best = &dateCandidate{
						date:     d,
						priority: prio,
						line:     line,
						match:    line[m[0]:m[1]],
						pattern:  p.name,
					}
				}
			}
		}
	}
	if best == nil {
		e.logger.Debug("extract.date.none")
		return nil
	}

	value := best.date
	corrected := false
	if e.correction != nil {
		if fixed, ok := e.correction.Apply(value, ctx.FullText); ok {
			e.logger.Warn("extract.date.month_corrected",
				"from", value.Format(time.DateOnly), "to", fixed.Format(time.DateOnly))
			value, corrected = fixed, true
		}
	}

	res := &Result[string]{
		Value:      value.Format(time.DateOnly),
		Confidence: math.Min(0.95, float64(best.priority)/100.0),
		Source:     snippet(best.line, 50),
		Meta: map[string]any{
			"pattern":   best.pattern,
			"priority":  best.priority,
			"match":     best.match,
			"corrected": corrected,
		},
	}
	e.logger.Debug("extract.date.selected", "date", res.Value, "pattern", best.pattern, "priority", best.priority)
	return res
}

// resolveDate turns a submatch into a calendar-valid date. Unknown eras,
// impossible months/days and non-existent dates are rejected.
func resolveDate(layout dateLayout, line string, m []int, currentYear int) (time.Time, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return line[m[2*i]:m[2*i+1]]
	}

	var year, month, day int
	switch layout {
	case layoutEra:
		offset, ok := eraOffsets[group(1)]
		if !ok {
			return time.Time{}, false
		}
		eraYear, _ := strconv.Atoi(group(2))
		if eraYear < 1 {
			return time.Time{}, false
		}
		year = offset + eraYear
		month, _ = strconv.Atoi(group(3))
		day, _ = strconv.Atoi(group(4))
	case layoutMD:
		year = currentYear
		month, _ = strconv.Atoi(group(1))
		day, _ = strconv.Atoi(group(2))
	default:
		ys := group(1)
		year, _ = strconv.Atoi(ys)
		if len(ys) == 2 {
			year = ExpandTwoDigitYear(year)
		}
		month, _ = strconv.Atoi(group(2))
		day, _ = strconv.Atoi(group(3))
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// ExpandTwoDigitYear maps 00-30 to the 2000s and 31-99 to the 1900s.
func ExpandTwoDigitYear(yy int) int {
	if yy <= twoDigitYearPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

func withinWindow(d, now time.Time) bool {
	return d.Year() >= minDateYear && d.Year() <= now.Year()+1
}

// keywordProximity scores the date keywords on the matched line and its
// neighbours. Lines above count more than lines below.
func keywordProximity(lines []string, idx, pos int) int {
	total := float64(lineKeywordScore(lines[idx], pos))
	for i := max(0, idx-2); i < idx; i++ {
		total += float64(lineKeywordScore(lines[i], 0)) * math.Pow(0.8, float64(idx-i))
	}
	for i := idx + 1; i < min(len(lines), idx+3); i++ {
		total += float64(lineKeywordScore(lines[i], 0)) * math.Pow(0.6, float64(i-idx))
	}
	return int(total)
}

func lineKeywordScore(line string, pos int) int {
	if line == "" {
		return 0
	}
	lower := strings.ToLower(line)
	score := 0
	for _, kw := range dateKeywords {
		i := strings.Index(lower, kw.term)
		if i < 0 {
			continue
		}
		dist := utf8.RuneCountInString(lower[:i]) - pos
		if dist < 0 {
			dist = -dist
		}
		score += kw.weight - min(dist/5, kw.weight-1)
	}
	return score
}
