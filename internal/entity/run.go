package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is the bookkeeping record for one batch over an input directory.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	InputDir   string     `json:"input_dir"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Flagged    int        `json:"flagged"`
	Skipped    int        `json:"skipped"`
}

// Record folds one finished document into the counters.
func (r *Run) Record(t *Transaction) {
	switch {
	case t.Failed():
		r.Failed++
	case t.NeedsReview:
		r.Succeeded++
		r.Flagged++
	default:
		r.Succeeded++
	}
}
