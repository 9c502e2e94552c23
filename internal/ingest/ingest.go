package ingest

import (
	"context"
	"time"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	FileType     string
	FileExt      string
	HashHex      string
	Size         int64
	Deduplicated bool
	// DuplicateOf is the first path seen with the same content, when known.
	DuplicateOf string
	SeenAt      time.Time
	Err         string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// HashIndex reports content hashes already processed by an earlier run.
type HashIndex interface {
	SeenHash(ctx context.Context, hashHex string) (bool, error)
}

// Ingestor is the behavior the batch runner depends on.
type Ingestor interface {
	// IngestPath hashes a single path and checks it against content already seen.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string) ([]IngestionResult, DirStats, error)
}
