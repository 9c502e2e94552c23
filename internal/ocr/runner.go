package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

// Runner executes the external OCR tools (tesseract, pdftotext, pdftoppm,
// HEIC converters). Tests swap it for a stub.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("ocr.exec.start", "tool", name, "args", len(args))

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := toolError(ctx, name, errb.Bytes(), cmd.Run())
	dur := time.Since(start)
	switch {
	case err == nil:
		logger.Debug("ocr.exec.ok", "tool", name, "duration_ms", dur.Milliseconds(), "stdout_bytes", out.Len())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("ocr.exec.interrupted", "tool", name, "duration_ms", dur.Milliseconds(), "error", err)
	default:
		logger.Error("ocr.exec.failed",
			"tool", name,
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// toolError turns a failed tool invocation into something a document report
// can show. A missing binary is a configuration problem, and a killed process
// reports the context error so the document counts as cancelled.
func toolError(ctx context.Context, name string, stderr []byte, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return common.NewAppError(common.CodeConfig,
			fmt.Sprintf("%s is not installed or not on PATH; check the OCR_* settings", name), err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return common.WrapError(ctxErr, name)
	}
	if msg := firstLine(stderr); msg != "" {
		return common.WrapError(err, fmt.Sprintf("%s: %s", name, msg))
	}
	return common.WrapError(err, name)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(strings.TrimSpace(s), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
