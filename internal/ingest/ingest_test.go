package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeIndex map[string]bool

func (f fakeIndex) SeenHash(_ context.Context, h string) (bool, error) { return f[h], nil }

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "合計 ¥390")
	write(t, filepath.Join(root, "b", "copy.txt"), "合計 ¥390")
	write(t, filepath.Join(root, "c.jpg"), "jpg")
	write(t, filepath.Join(root, "c.json"), `{"full_text":"x"}`)
	write(t, filepath.Join(root, "notes.md"), "skip")
	write(t, filepath.Join(root, ".hidden", "d.pdf"), "pdf")

	results, stats, err := NewFSIngestor(nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, DirStats{Scanned: 5, Matched: 3, Succeeded: 3, Deduplicated: 1}, stats)
	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", filepath.Base(results[0].SourcePath))
	assert.False(t, results[0].Deduplicated)
	assert.Equal(t, "TXT", results[0].FileType)
	assert.True(t, results[1].Deduplicated)
	assert.Equal(t, results[0].SourcePath, results[1].DuplicateOf)
	assert.Equal(t, results[0].HashHex, results[1].HashHex)
	assert.Equal(t, "IMAGE", results[2].FileType)
}

func TestIngestDirectory_Options(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "one")
	write(t, filepath.Join(root, "b.pdf"), "two")
	write(t, filepath.Join(root, ".c.txt"), "three")

	_, stats, err := NewFSIngestor(nil, WithAllowedExts([]string{".TXT"}), WithHidden()).IngestDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Matched)
}

func TestIngestPath_HashIndex(t *testing.T) {
	root := t.TempDir()
	p := write(t, filepath.Join(root, "r.txt"), "receipt")
	h, size, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)
	assert.Len(t, h, 64)

	res, err := NewFSIngestor(nil, WithHashIndex(fakeIndex{h: true})).IngestPath(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)
	assert.Empty(t, res.DuplicateOf)

	_, err = NewFSIngestor(nil).IngestPath(context.Background(), filepath.Join(root, "x.docx"))
	assert.Error(t, err)
}

func TestIngestDirectory_Errors(t *testing.T) {
	_, _, err := NewFSIngestor(nil).IngestDirectory(context.Background(), " ")
	assert.Error(t, err)

	_, _, err = NewFSIngestor(nil).IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	root := t.TempDir()
	write(t, filepath.Join(root, "a.txt"), "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = NewFSIngestor(nil).IngestDirectory(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsSidecar(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "r.PNG"), "png")
	side := write(t, filepath.Join(root, "r.json"), "{}")
	lone := write(t, filepath.Join(root, "lone.txt"), "text")

	assert.True(t, IsSidecar(side))
	assert.False(t, IsSidecar(lone))
	assert.False(t, IsSidecar(filepath.Join(root, "r.PNG")))
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "old.txt"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, "old.txt", filepath.Base(p))
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit")
	}

	write(t, filepath.Join(root, "new.txt"), "new")
	select {
	case p := <-events:
		assert.Equal(t, "new.txt", filepath.Base(p))
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not emit new file")
	}

	cancel()
	for range events {
	}

	_, _, err = StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
