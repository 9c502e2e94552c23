package ocr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sidecarDoc is the cached output of an earlier OCR pass.
type sidecarDoc struct {
	FullText   string   `json:"full_text"`
	Confidence *float64 `json:"confidence"`
	Pages      []struct {
		Text string `json:"text"`
	} `json:"pages"`
}

// sidecarFor reports a "<stem>.json" file next to path, if one exists.
func sidecarFor(path string) (string, bool) {
	side := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
	st, err := os.Stat(side)
	if err != nil || st.IsDir() {
		return "", false
	}
	return side, true
}

func readSidecar(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	var doc sidecarDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return ExtractionResult{}, fmt.Errorf("decode sidecar: %w", err)
	}

	text := doc.FullText
	if text == "" {
		parts := make([]string, 0, len(doc.Pages))
		for _, p := range doc.Pages {
			parts = append(parts, p.Text)
		}
		text = strings.Join(parts, "\n")
	}
	// older sidecars escaped newlines twice
	text = strings.ReplaceAll(text, `\n`, "\n")

	conf := EmbeddedTextConfidence
	if doc.Confidence != nil {
		conf = clamp01(*doc.Confidence)
	}
	pages := len(doc.Pages)
	if pages == 0 {
		pages = 1
	}
	return ExtractionResult{
		Text:       Normalize(text),
		Pages:      pages,
		Method:     "sidecar",
		Confidence: conf,
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
