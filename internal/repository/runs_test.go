package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := common.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "receipts.db") + "?_pragma=foreign_keys(1)",
	}
	db, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func ptr[T any](v T) *T { return &v }

func sampleRun() (entity.Run, []entity.Transaction, []review.Item) {
	started := time.Date(2024, 10, 30, 9, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	run := entity.Run{ID: uuid.New(), InputDir: "/in", StartedAt: started, FinishedAt: &finished, Total: 2, Succeeded: 1, Failed: 1}
	failed := "pdftoppm: exit status 1"
	txs := []entity.Transaction{
		{
			ID: uuid.New(), RunID: run.ID, FilePath: "/in/a.pdf", ContentHash: "aaa",
			Date: ptr("2024-10-30"), Amount: ptr(int64(390)), Vendor: ptr("Seven-Eleven"),
			Category: string(constants.Entertainment), CategoryConfidence: 0.4, Description: "Seven-Eleven",
			OCRConfidence: 0.95, Status: constants.StatusSucceeded, ProcessedAt: finished,
		},
		{
			ID: uuid.New(), RunID: run.ID, FilePath: "/in/b.pdf", ContentHash: "bbb",
			Category: string(constants.Other), NeedsReview: true, ReviewReason: "processing failed: " + failed,
			Status: constants.StatusFailed, Error: &failed, ProcessedAt: finished,
		},
	}
	items := []review.Item{
		{ID: uuid.New(), FilePath: "/in/b.pdf", Reason: "processing failed: " + failed, SuggestedCategory: "Other",
			Confidence: map[string]float64{"ocr": 0}, CreatedAt: finished},
	}
	return run, txs, items
}

func TestRunRepository_SaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)
	run, txs, items := sampleRun()
	require.NoError(t, repo.SaveRun(ctx, run, txs, items))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Total)
	assert.True(t, run.StartedAt.Equal(runs[0].StartedAt))
	require.NotNil(t, runs[0].FinishedAt)

	got, err := repo.ListTransactions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/in/a.pdf", got[0].FilePath)
	require.NotNil(t, got[0].Amount)
	assert.Equal(t, int64(390), *got[0].Amount)
	assert.Equal(t, "Seven-Eleven", *got[0].Vendor)
	assert.InDelta(t, 0.4, got[0].CategoryConfidence, 1e-9)
	assert.Nil(t, got[1].Date)
	assert.True(t, got[1].NeedsReview)
	assert.True(t, got[1].Failed())
	require.NotNil(t, got[1].Error)

	gotItems, err := repo.ListReviewItems(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gotItems, 1)
	assert.Equal(t, items[0].Reason, gotItems[0].Reason)
	assert.Nil(t, gotItems[0].SuggestedAmount)
	assert.Equal(t, map[string]float64{"ocr": 0}, gotItems[0].Confidence)
}

func TestRunRepository_SeenHash(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)
	run, txs, items := sampleRun()
	require.NoError(t, repo.SaveRun(ctx, run, txs, items))

	for hash, want := range map[string]bool{"aaa": true, "bbb": false, "zzz": false, "": false} {
		seen, err := repo.SeenHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, want, seen, hash)
	}
}

func TestRunRepository_DuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)
	run, txs, items := sampleRun()
	require.NoError(t, repo.SaveRun(ctx, run, txs, items))

	other := run
	err := repo.SaveRun(ctx, other, nil, nil)
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeDatabase))

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), common.DatabaseConfig{Driver: "mysql", DSN: "x"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
	assert.Equal(t, "sqlite3", db.Dialect())
}
