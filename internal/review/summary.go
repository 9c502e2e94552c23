package review

import (
	"strings"
)

// Summary breaks the queue down by reason.
type Summary struct {
	Total           int            `json:"total"`
	CategoryIssues  int            `json:"category_issues"`
	OCRIssues       int            `json:"ocr_issues"`
	MissingData     int            `json:"missing_data"`
	HighValue       int            `json:"high_value"`
	Failures        int            `json:"failures"`
	ReasonBreakdown map[string]int `json:"reason_breakdown"`
	// BelowThreshold counts items per field whose confidence is under its threshold.
	BelowThreshold map[string]int `json:"below_threshold"`
}

func (q *Queue) Summary() Summary {
	items := q.Items()
	s := Summary{
		Total:           len(items),
		ReasonBreakdown: map[string]int{},
		BelowThreshold:  map[string]int{},
	}
	limits := map[string]float64{
		"date":     q.thresholds.Date,
		"amount":   q.thresholds.Amount,
		"category": q.thresholds.Category,
		"ocr":      q.thresholds.OCR,
	}

	for _, it := range items {
		for _, r := range strings.Split(it.Reason, ";") {
			if r = strings.TrimSpace(r); r != "" {
				s.ReasonBreakdown[r]++
			}
		}
		lower := strings.ToLower(it.Reason)
		if strings.Contains(lower, "category") {
			s.CategoryIssues++
		}
		if strings.Contains(lower, "ocr") {
			s.OCRIssues++
		}
		if strings.Contains(lower, "missing") {
			s.MissingData++
		}
		if strings.Contains(lower, "high value") {
			s.HighValue++
		}
		if strings.HasPrefix(lower, "processing failed") {
			s.Failures++
		}
		for field, v := range it.Confidence {
			if limit, ok := limits[field]; ok && v < limit {
				s.BelowThreshold[field]++
			}
		}
	}
	return s
}
