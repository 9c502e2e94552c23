package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/classify"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/core/async"
	"github.com/joseph-ayodele/receipts-extractor/internal/describe"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/extract"
	"github.com/joseph-ayodele/receipts-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

// Processor coordinates OCR text, field extraction, classification, description
// and review routing for one document. It is safe for concurrent use; the review
// queue is the only state it shares between documents.
type Processor struct {
	logger     *slog.Logger
	source     ocr.Source
	parser     *extract.Parser
	classifier *classify.Classifier
	describer  *describe.Generator
	review     *review.Queue
	now        func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	source ocr.Source,
	parser *extract.Parser,
	classifier *classify.Classifier,
	describer *describe.Generator,
	queue *review.Queue,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = extract.NewDefaultParser(logger)
	}
	if describer == nil {
		describer = describe.NewGenerator()
	}
	if queue == nil {
		queue = review.NewQueue(logger)
	}
	return &Processor{
		logger:     logger,
		source:     source,
		parser:     parser,
		classifier: classifier,
		describer:  describer,
		review:     queue,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Review exposes the shared review queue.
func (p *Processor) Review() *review.Queue {
	return p.review
}

// Process runs one job end to end. Any OCR error or panic inside the extractors
// ends up as a FAILED transaction plus a review item; it never escapes.
func (p *Processor) Process(ctx context.Context, job async.Job) (tx entity.Transaction) {
	tx = entity.Transaction{
		ID:          uuid.New(),
		RunID:       job.RunID,
		FilePath:    job.Path,
		ContentHash: job.ContentHash,
	}
	var rawText string
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processor.document.panic", "path", job.Path, "panic", r)
			tx = p.fail(tx, fmt.Errorf("extraction panic: %v", r), rawText)
		}
	}()

	if err := ctx.Err(); err != nil {
		return p.cancelled(tx)
	}

	octx := ocr.WithContentHash(common.WithTraceID(ctx, job.TraceID), job.ContentHash)
	res, err := p.source.Extract(octx, job.Path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return p.cancelled(tx)
		}
		p.logger.Error("processor.ocr.failed", "path", job.Path, "error", err)
		return p.fail(tx, err, res.Text)
	}
	rawText = res.Text

	out := p.Analyze(job.Path, res.Text, res.Confidence)
	out.ID, out.RunID, out.ContentHash = tx.ID, tx.RunID, tx.ContentHash
	return out
}

// Analyze extracts, classifies, describes and routes already available text.
func (p *Processor) Analyze(path, text string, ocrConfidence float64) entity.Transaction {
	f := p.parser.Parse(text)
	tx := entity.Transaction{
		ID:            uuid.New(),
		FilePath:      path,
		OCRConfidence: ocrConfidence,
		ProcessedAt:   p.now(),
	}

	vendor := ""
	if f.Date != nil {
		tx.Date, tx.DateConfidence = &f.Date.Value, f.Date.Confidence
	}
	if f.Amount != nil {
		tx.Amount, tx.AmountConfidence = &f.Amount.Value, f.Amount.Confidence
	}
	if f.Vendor != nil {
		vendor = f.Vendor.Value
		tx.Vendor, tx.VendorConfidence = &f.Vendor.Value, f.Vendor.Confidence
	}

	tx.Category, tx.CategoryConfidence = p.classifier.Classify(vendor, "", text)
	tx.Description = p.describer.Generate(text, tx.Vendor, tx.Amount, tx.Category)

	item, flagged := p.review.AddFromExtraction(review.Input{
		FilePath:           path,
		Date:               tx.Date,
		Amount:             tx.Amount,
		Category:           tx.Category,
		CategoryConfidence: tx.CategoryConfidence,
		OCRConfidence:      ocrConfidence,
		DateConfidence:     tx.DateConfidence,
		AmountConfidence:   tx.AmountConfidence,
		RawText:            text,
		Handwritten:        f.Handwritten,
	})
	tx.Status = constants.StatusSucceeded
	if flagged {
		tx.NeedsReview = true
		tx.ReviewReason = item.Reason
		tx.Status = constants.StatusReview
	}

	p.logger.Info("processor.document.done",
		"file", filepath.Base(path),
		"status", tx.Status,
		"category", tx.Category,
		"category_confidence", tx.CategoryConfidence,
	)
	return tx
}

func (p *Processor) fail(tx entity.Transaction, err error, rawText string) entity.Transaction {
	msg := err.Error()
	item := p.review.AddFailure(tx.FilePath, err, rawText)
	tx.Status = constants.StatusFailed
	tx.Error = &msg
	tx.NeedsReview = true
	tx.ReviewReason = item.Reason
	tx.ProcessedAt = p.now()
	return tx
}

// cancelled marks a document that never started; it is not routed to review.
func (p *Processor) cancelled(tx entity.Transaction) entity.Transaction {
	msg := common.ErrCancelled.Error()
	tx.Status = constants.StatusFailed
	tx.Error = &msg
	tx.ProcessedAt = p.now()
	return tx
}
