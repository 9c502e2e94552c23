package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func newTestDateExtractor() *DateExtractor {
	return NewDateExtractor(nil, WithClock(fixedClock(2025)))
}

func TestDateExtractor_Formats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "full kanji", text: "2024年10月30日", want: "2024-10-30"},
		{name: "kanji with spaces", text: "2024年 7月 9日 14:02", want: "2024-07-09"},
		{name: "two digit year kanji", text: "24年 7月 9日", want: "2024-07-09"},
		{name: "slash", text: "2024/3/5 12:00", want: "2024-03-05"},
		{name: "dash", text: "発行日 2023-12-01", want: "2023-12-01"},
		{name: "ticket", text: "乗車日 2025 -3.29", want: "2025-03-29"},
		{name: "dot", text: "24.10.30 レジ01", want: "2024-10-30"},
		{name: "dot dash", text: "24.-8.30", want: "2024-08-30"},
		{name: "short slash", text: "IKEA 24/11/02", want: "2024-11-02"},
		{name: "reiwa", text: "令和6年7月12日", want: "2024-07-12"},
		{name: "heisei", text: "平成31年4月1日", want: "2019-04-01"},
		{name: "month day uses clock year", text: "5月14日 ご来店", want: "2025-05-14"},
		{name: "full width digits", text: "２０２４年１０月３０日", want: "2024-10-30"},
	}

	e := newTestDateExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Extract(NewReceiptContext(tt.text))
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.Value)
			assert.Greater(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 0.95)
		})
	}
}

func TestDateExtractor_Rejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "no date", text: "合計 ¥390"},
		{name: "impossible month", text: "2024/13/01"},
		{name: "impossible day", text: "2023年2月29日"},
		{name: "before window", text: "1999/05/20"},
		{name: "after window", text: "2031/01/01"},
		{name: "twentieth century dot date", text: "99.05.20"},
	}

	e := newTestDateExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, e.Extract(NewReceiptContext(tt.text)))
		})
	}
}

func TestExpandTwoDigitYear(t *testing.T) {
	assert.Equal(t, 2024, ExpandTwoDigitYear(24))
	assert.Equal(t, 2030, ExpandTwoDigitYear(30))
	assert.Equal(t, 1931, ExpandTwoDigitYear(31))
	assert.Equal(t, 1999, ExpandTwoDigitYear(99))
	assert.Equal(t, 2000, ExpandTwoDigitYear(0))
}

func TestResolveDate_DotCenturyBoundary(t *testing.T) {
	line := "99.05.20"
	m := datePatterns[6].re.FindStringSubmatchIndex(line)
	require.NotNil(t, m)

	d, ok := resolveDate(datePatterns[6].layout, line, m, 2025)
	require.True(t, ok)
	assert.Equal(t, "1999-05-20", d.Format(time.DateOnly))
	assert.False(t, withinWindow(d, fixedClock(2025)()))
}

func TestResolveDate_EraYearZero(t *testing.T) {
	p := datePatterns[len(datePatterns)-1]
	line := "令和0年1月1日"
	m := p.re.FindStringSubmatchIndex(line)
	require.NotNil(t, m)

	_, ok := resolveDate(p.layout, line, m, 2025)
	assert.False(t, ok)
}

func TestDateExtractor_KeywordProximityWins(t *testing.T) {
	text := "ご利用期間 2024/01/01 - 2024/01/31\n請求書\n発行日 2024/02/05\ndue date 2024/02/28"

	res := newTestDateExtractor().Extract(NewReceiptContext(text))
	require.NotNil(t, res)
	assert.Equal(t, "2024-02-05", res.Value)
}

func TestDateExtractor_KeywordTwoLinesBelow(t *testing.T) {
	res := newTestDateExtractor().Extract(NewReceiptContext("2024/01/05\nfoo\n2024/02/10\nbar\n発行日"))
	require.NotNil(t, res)
	assert.Equal(t, "2024-02-10", res.Value)

	// three lines below is out of reach
	res = newTestDateExtractor().Extract(NewReceiptContext("2024/01/05\nfoo\n2024/02/10\nbar\nbaz\n発行日"))
	require.NotNil(t, res)
	assert.Equal(t, "2024-01-05", res.Value)
}

func TestKeywordProximity_Decay(t *testing.T) {
	lines := []string{"発行日", "", "2024/02/10", "", "発行日"}
	above := keywordProximity(lines[:3], 2, 0)
	below := keywordProximity(lines[2:], 0, 0)
	assert.InDelta(t, 32, above, 1)
	assert.InDelta(t, 18, below, 1)
}

func TestDateExtractor_FirstFoundWinsTie(t *testing.T) {
	res := newTestDateExtractor().Extract(NewReceiptContext("2024/04/01\n\n\n\n2024/05/01"))
	require.NotNil(t, res)
	assert.Equal(t, "2024-04-01", res.Value)
}

func TestDateExtractor_WindowFollowsClock(t *testing.T) {
	text := "2026/01/10"
	assert.Nil(t, NewDateExtractor(nil, WithClock(fixedClock(2024))).Extract(NewReceiptContext(text)))
	assert.NotNil(t, NewDateExtractor(nil, WithClock(fixedClock(2025))).Extract(NewReceiptContext(text)))
}

func TestMonthCorrection(t *testing.T) {
	may := time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC)
	c := DefaultMonthCorrection()

	tests := []struct {
		name  string
		date  time.Time
		text  string
		fired bool
	}{
		{name: "invoice with march", date: may, text: "TAX INVOICE\nRent for March", fired: true},
		{name: "kanji march", date: may, text: "OFFICE 利用料 3月分", fired: true},
		{name: "ordinary receipt", date: may, text: "ローソン\nMarch campaign", fired: false},
		{name: "may also present", date: may, text: "INVOICE\nMarch - May service", fired: false},
		{name: "no march marker", date: may, text: "INVOICE\nservices", fired: false},
		{name: "not may", date: may.AddDate(0, 1, 0), text: "INVOICE\nMarch", fired: false},
		{name: "rent inside word", date: may, text: "CURRENT balance\nMarch", fired: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Apply(tt.date, tt.text)
			assert.Equal(t, tt.fired, ok)
			if tt.fired {
				assert.Equal(t, time.March, got.Month())
				assert.Equal(t, tt.date.Day(), got.Day())
				assert.Equal(t, tt.date.Year(), got.Year())
			} else {
				assert.Equal(t, tt.date, got)
			}
		})
	}
}

func TestDateExtractor_MonthCorrection(t *testing.T) {
	text := "TAX INVOICE\nInvoice Date: 2025/05/15\nOffice rent for March"

	res := newTestDateExtractor().Extract(NewReceiptContext(text))
	require.NotNil(t, res)
	assert.Equal(t, "2025-03-15", res.Value)
	assert.Equal(t, true, res.Meta["corrected"])

	off := NewDateExtractor(nil, WithClock(fixedClock(2025)), WithMonthCorrection(nil))
	res = off.Extract(NewReceiptContext(text))
	require.NotNil(t, res)
	assert.Equal(t, "2025-05-15", res.Value)
}
