package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/constants"
)

// Transaction is the per-document output record shared between layers.
// Date, Amount and Vendor are nil when the field could not be extracted.
type Transaction struct {
	ID                 uuid.UUID           `json:"id"`
	RunID              uuid.UUID           `json:"run_id"`
	FilePath           string              `json:"file_path"`
	ContentHash        string              `json:"content_hash,omitempty"`
	Date               *string             `json:"date"`
	Amount             *int64              `json:"amount"`
	Vendor             *string             `json:"vendor"`
	Category           string              `json:"category"`
	CategoryConfidence float64             `json:"category_confidence"`
	Description        string              `json:"description"`
	OCRConfidence      float64             `json:"ocr_confidence"`
	DateConfidence     float64             `json:"date_confidence,omitempty"`
	AmountConfidence   float64             `json:"amount_confidence,omitempty"`
	VendorConfidence   float64             `json:"vendor_confidence,omitempty"`
	NeedsReview        bool                `json:"needs_review"`
	ReviewReason       string              `json:"review_reason,omitempty"`
	Status             constants.RunStatus `json:"status"`
	Error              *string             `json:"error,omitempty"`
	ProcessedAt        time.Time           `json:"processed_at"`
}

// Failed reports whether the document never produced extraction output.
func (t *Transaction) Failed() bool {
	return t.Status == constants.StatusFailed
}
