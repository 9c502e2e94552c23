package core

import (
	"log/slog"

	"github.com/joseph-ayodele/receipts-extractor/internal/classify"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/extract"
	"github.com/joseph-ayodele/receipts-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

// OCRConfig maps the OCR section of the application config onto the extractor's.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:           c.Pdftotext,
		Pdftoppm:            c.Pdftoppm,
		Tesseract:           c.Tesseract,
		TesseractLang:       c.Lang,
		DPI:                 c.DPI,
		MaxPages:            c.MaxPages,
		TessdataDir:         c.TessdataDir,
		HeicConverter:       c.HeicConverter,
		EnableTSVConfidence: c.EnableTSVConfidence,
		PreferSidecar:       c.PreferSidecar,
		ArtifactCacheDir:    c.ArtifactCacheDir,
	}
}

// ReviewThresholds maps the pipeline section onto review thresholds.
func ReviewThresholds(c common.PipelineConfig) review.Thresholds {
	return review.Thresholds{
		Date:     c.DateThreshold,
		Amount:   c.AmountThreshold,
		Category: c.CategoryThreshold,
		OCR:      c.OCRThreshold,
	}
}

// NewProcessorFromConfig assembles the OCR source, extractors, classifier and
// review queue described by cfg. A nil source builds the exec-backed OCR extractor.
func NewProcessorFromConfig(cfg *common.Config, source ocr.Source, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	th := ReviewThresholds(cfg.Pipeline)
	if err := th.Validate(); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "review thresholds", err)
	}
	classifier, err := classify.NewClassifier(logger, classify.FileProvider{Path: cfg.Pipeline.RulesPath})
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	}
	queue := review.NewQueue(logger,
		review.WithThresholds(th),
		review.WithHighValue(cfg.Pipeline.HighValue),
	)
	return NewProcessor(logger, source, extract.NewDefaultParser(logger), classifier, nil, queue), nil
}

// BatchOptions turns the pipeline section into batch options.
func BatchOptions(c common.PipelineConfig) []BatchOption {
	return []BatchOption{
		WithWorkers(c.Workers),
		WithQueueSize(c.QueueSize),
		WithProcessTimeout(c.ProcessTimeout),
	}
}
