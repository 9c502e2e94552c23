package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

// FSIngestor reads from the local filesystem. Files with identical content are
// reported once; later copies come back with Deduplicated set.
type FSIngestor struct {
	logger      *slog.Logger
	index       HashIndex
	allowedExts map[string]struct{}
	skipHidden  bool
	now         func() time.Time

	mu   sync.Mutex
	seen map[string]string // hash -> first path
}

type Option func(*FSIngestor)

// WithHashIndex adds a lookup of hashes processed by earlier runs.
func WithHashIndex(idx HashIndex) Option {
	return func(i *FSIngestor) { i.index = idx }
}

// WithAllowedExts restricts discovery to the given extensions.
func WithAllowedExts(exts []string) Option {
	return func(i *FSIngestor) {
		set := make(map[string]struct{}, len(exts))
		for _, e := range exts {
			if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
				set[e] = struct{}{}
			}
		}
		if len(set) > 0 {
			i.allowedExts = set
		}
	}
}

// WithHidden includes dot files and dot directories.
func WithHidden() Option {
	return func(i *FSIngestor) { i.skipHidden = false }
}

func NewFSIngestor(logger *slog.Logger, opts ...Option) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &FSIngestor{
		logger:      logger,
		allowedExts: constants.AllowedExtensions,
		skipHidden:  true,
		now:         func() time.Time { return time.Now().UTC() },
		seen:        map[string]string{},
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *FSIngestor) allowed(ext string) bool {
	_, ok := i.allowedExts[constants.NormalizeExt(ext)]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowed(ext) {
		return out, common.NewAppError(common.CodeProcessing, fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrInvalidInput)
	}

	hashHex, size, err := HashFile(abs)
	if err != nil {
		i.logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, fmt.Errorf("hash: %w", err)
	}

	out = IngestionResult{
		SourcePath: abs,
		FileType:   constants.FileTypeFor(ext),
		FileExt:    ext,
		HashHex:    hashHex,
		Size:       size,
		SeenAt:     i.now(),
	}

	i.mu.Lock()
	first, dup := i.seen[hashHex]
	if !dup {
		i.seen[hashHex] = abs
	}
	i.mu.Unlock()
	if dup {
		out.Deduplicated = true
		out.DuplicateOf = first
		i.logger.Info("ingest.file.duplicate", "path", abs, "first", first)
		return out, nil
	}

	if i.index != nil {
		known, err := i.index.SeenHash(ctx, hashHex)
		if err != nil {
			return out, fmt.Errorf("lookup hash: %w", err)
		}
		if known {
			out.Deduplicated = true
			i.logger.Info("ingest.file.already_processed", "path", abs)
		}
	}
	return out, nil
}

// IngestDirectory walks root in lexical order, skips hidden entries and sidecar files,
// and calls IngestPath for each remaining file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeConfig, "input directory is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !i.allowed(filepath.Ext(path)) || IsSidecar(path) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return results, stats, err
		}
		return results, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	i.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
