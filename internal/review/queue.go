package review

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

// Thresholds are the per-signal minimum confidences. Category and OCR breaches
// flag a document; Date and Amount only feed Summary.BelowThreshold, because
// extractor confidences are relative scores rather than probabilities.
type Thresholds struct {
	Date     float64 `validate:"gte=0,lte=1"`
	Amount   float64 `validate:"gte=0,lte=1"`
	Category float64 `validate:"gte=0,lte=1"`
	OCR      float64 `validate:"gte=0,lte=1"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Date: 0.7, Amount: 0.7, Category: 0.3, OCR: 0.3}
}

func (t Thresholds) Validate() error {
	return common.ValidateStruct(t)
}

const (
	DefaultHighValue = 50_000
	// wellClassifiedConfidence lets large recurring bills through the high-value guard.
	wellClassifiedConfidence = 0.8
	// handwrittenOCRCeiling is the OCR confidence below which a scan is assumed handwritten.
	handwrittenOCRCeiling = 0.3
	// mixedOCRCeiling marks OCR that is usable but uneven, as on partly handwritten slips.
	mixedOCRCeiling = 0.9
	snippetRunes    = 200
)

var largeRecurring = map[string]bool{
	string(constants.Rent):      true,
	string(constants.Utilities): true,
	string(constants.Equipment): true,
}

var (
	handwrittenTextHints = []string{"curry", "様", "但", "領収証", "税抜金額"}
	handwrittenPathHints = []string{"curry", "restaurant"}
)

// Input is everything the queue needs to judge one document.
type Input struct {
	FilePath           string
	Date               *string
	Amount             *int64
	Category           string
	CategoryConfidence float64
	OCRConfidence      float64
	DateConfidence     float64
	AmountConfidence   float64
	RawText            string
	// Handwritten is the extractor's own handwritten verdict, if it made one.
	Handwritten bool
}

// Item is one document waiting for manual attention.
type Item struct {
	ID                uuid.UUID          `json:"id"`
	FilePath          string             `json:"file_path"`
	Reason            string             `json:"reason"`
	SuggestedDate     *string            `json:"suggested_date,omitempty"`
	SuggestedAmount   *int64             `json:"suggested_amount,omitempty"`
	SuggestedCategory string             `json:"suggested_category,omitempty"`
	RawSnippet        string             `json:"raw_snippet"`
	Confidence        map[string]float64 `json:"confidence,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

type Option func(*Queue)

func WithThresholds(t Thresholds) Option {
	return func(q *Queue) { q.thresholds = t }
}

// WithHighValue sets the yen amount at which transactions need confirmation.
func WithHighValue(yen int64) Option {
	return func(q *Queue) { q.highValue = yen }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue accumulates review items from concurrent workers.
type Queue struct {
	logger     *slog.Logger
	thresholds Thresholds
	highValue  int64
	now        func() time.Time

	mu    sync.Mutex
	items []Item
}

func NewQueue(logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		logger:     logger,
		thresholds: DefaultThresholds(),
		highValue:  DefaultHighValue,
		now:        time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *Queue) Thresholds() Thresholds {
	return q.thresholds
}

// flag is one review condition: a full sentence for logs and CLI output and a
// short label used in item reasons.
type flag struct {
	detail string
	label  string
}

func (q *Queue) evaluate(in Input) []flag {
	var flags []flag
	if in.Date == nil || *in.Date == "" {
		flags = append(flags, flag{"No valid date found", "missing date"})
	}
	if in.Amount == nil || *in.Amount == 0 {
		if q.likelyHandwritten(in) {
			flags = append(flags, flag{
				"missing amount; likely handwritten receipt - check for handwritten ¥ in gray sections",
				"missing amount (likely handwritten)",
			})
		} else {
			flags = append(flags, flag{"missing amount", "missing amount"})
		}
	}
	if in.CategoryConfidence < q.thresholds.Category {
		flags = append(flags, flag{fmt.Sprintf("Low category confidence (%.2f)", in.CategoryConfidence), "low category confidence"})
	}
	if in.OCRConfidence < q.thresholds.OCR {
		flags = append(flags, flag{fmt.Sprintf("Low OCR confidence (%.2f)", in.OCRConfidence), "low OCR quality"})
	}
	if in.OCRConfidence < handwrittenOCRCeiling {
		flags = append(flags, flag{"Likely handwritten receipt", "likely handwritten"})
	}
	if in.Category == string(constants.Other) {
		flags = append(flags, flag{"Category could not be determined", "unknown category"})
	}
	if q.HighValue(in.Amount, in.Date, in.Category, in.CategoryConfidence) {
		flags = append(flags, flag{fmt.Sprintf("High-value transaction ¥%s needs confirmation", Yen(*in.Amount)), "high value"})
	}
	return flags
}

// likelyHandwritten applies only when the date survived but the total did not.
func (q *Queue) likelyHandwritten(in Input) bool {
	if in.Date == nil || *in.Date == "" {
		return false
	}
	if in.Handwritten || in.OCRConfidence < mixedOCRCeiling {
		return true
	}
	if containsAny(strings.ToLower(in.RawText), handwrittenTextHints) {
		return true
	}
	return containsAny(strings.ToLower(in.FilePath), handwrittenPathHints)
}

// ShouldReview reports whether the document needs manual review and why.
func (q *Queue) ShouldReview(in Input) (bool, []string) {
	flags := q.evaluate(in)
	if len(flags) == 0 {
		return false, nil
	}
	reasons := make([]string, len(flags))
	for i, f := range flags {
		reasons[i] = f.detail
	}
	q.logger.Info("review.flagged", "file", filepath.Base(in.FilePath), "reasons", strings.Join(reasons, "; "))
	return true, reasons
}

// HighValue is the large-amount guard. Amounts at or above the threshold need
// confirmation unless they are dated, confidently classified recurring bills.
func (q *Queue) HighValue(amount *int64, date *string, category string, confidence float64) bool {
	if amount == nil || *amount == 0 {
		return false
	}
	if date != nil && *date != "" && largeRecurring[category] && confidence >= wellClassifiedConfidence {
		if *amount >= q.highValue {
			q.logger.Debug("review.high_value.skipped", "amount", *amount, "category", category, "confidence", confidence)
		}
		return false
	}
	if *amount >= q.highValue {
		q.logger.Warn("review.high_value.flagged", "amount", *amount)
		return true
	}
	return false
}

// AddFromExtraction records an item when the document needs review.
func (q *Queue) AddFromExtraction(in Input) (Item, bool) {
	flags := q.evaluate(in)
	if len(flags) == 0 {
		return Item{}, false
	}
	labels := make([]string, len(flags))
	for i, f := range flags {
		labels[i] = f.label
	}

	conf := map[string]float64{
		"category": in.CategoryConfidence,
		"ocr":      in.OCRConfidence,
	}
	if in.Date != nil {
		conf["date"] = in.DateConfidence
	}
	if in.Amount != nil {
		conf["amount"] = in.AmountConfidence
	}

	item := Item{
		FilePath:          in.FilePath,
		Reason:            strings.Join(labels, "; "),
		SuggestedDate:     in.Date,
		SuggestedAmount:   in.Amount,
		SuggestedCategory: in.Category,
		RawSnippet:        Snippet(in.RawText),
		Confidence:        conf,
	}
	return q.Add(item), true
}

// AddFailure records a document that could not be processed at all.
func (q *Queue) AddFailure(filePath string, err error, rawText string) Item {
	return q.Add(Item{
		FilePath:   filePath,
		Reason:     "processing failed: " + err.Error(),
		RawSnippet: Snippet(rawText),
	})
}

// Add appends item, filling in the ID and creation time when unset.
func (q *Queue) Add(item Item) Item {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = q.now()
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.logger.Debug("review.added", "file", filepath.Base(item.FilePath), "reason", item.Reason)
	return item
}

// Items returns a snapshot in insertion order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.logger.Info("review.cleared")
}

// Snippet returns the first 200 runes of text on one line, without control
// characters that spreadsheets reject.
func Snippet(text string) string {
	var b strings.Builder
	n := 0
	truncated := false
	for _, r := range text {
		if n == snippetRunes {
			truncated = true
			break
		}
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			r = ' '
		case r < 0x20 || r == 0x7f:
			continue
		}
		b.WriteRune(r)
		n++
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}

// Yen formats v with thousands separators.
func Yen(v int64) string {
	if v < 0 {
		return "-" + Yen(-v)
	}
	s := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
