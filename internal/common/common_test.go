package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, int64(50_000), cfg.Pipeline.HighValue)
	assert.Equal(t, 0.7, cfg.Pipeline.DateThreshold)
	assert.Equal(t, 0.3, cfg.Pipeline.OCRThreshold)
	assert.Equal(t, "jpn", cfg.OCR.Lang)
	assert.True(t, cfg.OCR.PreferSidecar)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("WORKERS", "8")
	t.Setenv("REVIEW_CATEGORY_THRESHOLD", "0.5")
	t.Setenv("PROCESS_TIMEOUT", "30s")
	t.Setenv("OCR_PREFER_SIDECAR", "false")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 0.5, cfg.Pipeline.CategoryThreshold)
	assert.Equal(t, "30s", cfg.Pipeline.ProcessTimeout.String())
	assert.False(t, cfg.OCR.PreferSidecar)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{name: "zero workers", env: map[string]string{"WORKERS": "0"}, field: "Workers"},
		{name: "threshold above one", env: map[string]string{"REVIEW_OCR_THRESHOLD": "1.5"}, field: "OCRThreshold"},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mysql"}, field: "Driver"},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "loud"}, field: "Level"},
		{name: "unknown heic converter", env: map[string]string{"HEIC_CONVERTER": "gimp"}, field: "HeicConverter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := LoadConfig().Validate()
			require.Error(t, err)
			assert.True(t, HasCode(err, CodeConfig))
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(p, []byte("RX_TEST_FROM_FILE=hello\n"), 0o644))
	t.Setenv("RX_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("RX_TEST_FROM_FILE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), p))
	assert.Equal(t, "hello", os.Getenv("RX_TEST_FROM_FILE"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "rx.log")
	logger, closer := NewLogger(LogConfig{Level: "warn", Format: "json", File: file, MaxSizeMB: 1}, &buf)

	logger.Info("hidden")
	logger.Warn("run.finished", "flagged", 2)
	require.NoError(t, closer.Close())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"run.finished"`)
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "run.finished")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestAppError(t *testing.T) {
	err := NewAppError(CodeOCR, "scan.png", ErrNoText)
	assert.Equal(t, "OCR_ERROR: scan.png: no text extracted", err.Error())
	assert.ErrorIs(t, err, ErrNoText)
	assert.True(t, HasCode(WrapError(err, "process"), CodeOCR))
	assert.False(t, HasCode(errors.New("plain"), CodeOCR))
	assert.Nil(t, WrapError(nil, "x"))
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{WrapError(ErrNotFound, "run"), codes.NotFound},
		{ErrValidation, codes.InvalidArgument},
		{NewAppError(CodeDatabase, "ping", errors.New("refused")), codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{InvalidArgumentErrorf("bad %s", "id"), codes.InvalidArgument},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, status.Code(StatusFromError(c.err)), c.err.Error())
	}
	assert.NoError(t, StatusFromError(nil))
}

func TestContextIDs(t *testing.T) {
	ctx := WithTraceID(WithRunID(context.Background(), "run-1"), "doc-1")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "doc-1", TraceIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))
}
