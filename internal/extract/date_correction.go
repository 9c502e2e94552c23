package extract

import (
	"regexp"
	"time"
)

// MonthCorrection repairs a month digit that OCR tends to misread on a
// specific family of documents. It runs only after a date has been selected
// and validated, and never changes the year or day.
type MonthCorrection struct {
	// Trigger must match somewhere in the text for the correction to apply.
	Trigger *regexp.Regexp
	From    time.Month
	To      time.Month
	// Confirm must match and Conflict must not.
	Confirm  *regexp.Regexp
	Conflict *regexp.Regexp
}

// DefaultMonthCorrection rewrites May to March on formal invoices where the
// text mentions March and nowhere mentions May.
func DefaultMonthCorrection() *MonthCorrection {
	return &MonthCorrection{
		Trigger:  regexp.MustCompile(`(?i)\b(?:tax invoice|invoice|rent|office)\b`),
		From:     time.May,
		To:       time.March,
		Confirm:  regexp.MustCompile(`(?i)\bmar(?:ch)?\b|3月|三月|サンガツ`),
		Conflict: regexp.MustCompile(`(?i)\bmay\b|\bmai\b|5月|五月|ゴガツ`),
	}
}

// Apply returns the corrected date and true when the correction fired.
func (c *MonthCorrection) Apply(d time.Time, text string) (time.Time, bool) {
	if c == nil || d.Month() != c.From {
		return d, false
	}
	if c.Trigger == nil || !c.Trigger.MatchString(text) {
		return d, false
	}
	if c.Confirm == nil || !c.Confirm.MatchString(text) {
		return d, false
	}
	if c.Conflict != nil && c.Conflict.MatchString(text) {
		return d, false
	}
	fixed := time.Date(d.Year(), c.To, d.Day(), 0, 0, 0, 0, d.Location())
	if fixed.Day() != d.Day() {
		return d, false
	}
	return fixed, true
}
