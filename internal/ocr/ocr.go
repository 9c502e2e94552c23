package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

// EmbeddedTextConfidence is reported for text that did not go through recognition:
// plain-text files, sidecars without a score and PDFs with a usable text layer.
const EmbeddedTextConfidence = 0.95

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "jpn"
	DPI           int    // rasterization DPI for scanned PDFs, default 200
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // 6 suits a uniform block of text
	OEM int // 1 = LSTM; 0 keeps the tesseract default

	// PreferSidecar makes a "<name>.json" next to the document win over running OCR.
	PreferSidecar bool

	ArtifactCacheDir string
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // one of constants.FileTypes
	Method     string // "text" | "sidecar" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float64 // 0..1
}

// Source turns a document on disk into text plus a recognition confidence.
type Source interface {
	Extract(ctx context.Context, path string) (ExtractionResult, error)
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner swaps the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "jpn"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	kind := constants.FileTypeFor(ext)
	log := e.logger
	if id := common.RunIDFromContext(ctx); id != "" {
		log = log.With("run_id", id)
	}
	if id := common.TraceIDFromContext(ctx); id != "" {
		log = log.With("trace_id", id)
	}
	log.Debug("ocr.extract.start", "path", path, "type", kind)

	if err := ctx.Err(); err != nil {
		return ExtractionResult{SourceType: kind}, err
	}
	if e.cfg.PreferSidecar && kind != "JSON" && kind != "TXT" {
		if side, ok := sidecarFor(path); ok {
			res, err := readSidecar(side)
			if err == nil {
				res.SourceType = kind
				res.Duration = time.Since(start)
				log.Debug("ocr.sidecar.used", "path", path, "sidecar", side)
				return res, nil
			}
			log.Warn("ocr.sidecar.invalid", "sidecar", side, "error", err)
		}
	}

	var (
		res ExtractionResult
		err error
	)
	switch kind {
	case "TXT":
		res, err = readText(path)
	case "JSON":
		res, err = readSidecar(path)
	case "PDF":
		res, err = e.extractPDF(ctx, path)
	default:
		res, err = e.extractImageFile(ctx, path, ext)
	}
	res.SourceType = kind
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("ocr.extract.failed", "path", path, "error", err)
		return res, common.NewAppError(common.CodeOCR, fmt.Sprintf("extract text from %s", filepath.Base(path)), err)
	}
	if res.Text == "" {
		return res, common.NewAppError(common.CodeOCR, filepath.Base(path), common.ErrNoText)
	}
	log.Debug("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractImageFile(ctx context.Context, path, ext string) (ExtractionResult, error) {
	var warns []string
	if ext == "heic" {
		hashHex, _ := contentHashFromCtx(ctx)
		out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
		warns = append(warns, w...)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return ExtractionResult{Warnings: warns}, err
		}
		path = out
	}
	res, err := e.extractImage(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	return res, err
}

func readText(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	return ExtractionResult{
		Text:       Normalize(string(b)),
		Pages:      1,
		Method:     "text",
		Confidence: EmbeddedTextConfidence,
	}, nil
}
