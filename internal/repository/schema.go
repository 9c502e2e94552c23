package repository

import (
	"context"

	"github.com/joseph-ayodele/receipts-extractor/internal/common"
)

// Timestamps are stored as RFC 3339 text so both dialects read them back the same way.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		input_dir   TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		total       INTEGER NOT NULL DEFAULT 0,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		flagged     INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                  TEXT PRIMARY KEY,
		run_id              TEXT NOT NULL REFERENCES runs(id),
		seq                 INTEGER NOT NULL,
		file_path           TEXT NOT NULL,
		content_hash        TEXT NOT NULL DEFAULT '',
		receipt_date        TEXT,
		amount              BIGINT,
		vendor              TEXT,
		category            TEXT NOT NULL DEFAULT '',
		category_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		description         TEXT NOT NULL DEFAULT '',
		ocr_confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
		date_confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
		amount_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
		vendor_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
		needs_review        BOOLEAN NOT NULL DEFAULT FALSE,
		review_reason       TEXT NOT NULL DEFAULT '',
		status              TEXT NOT NULL,
		error               TEXT,
		processed_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_content_hash_idx ON transactions (content_hash)`,
	`CREATE INDEX IF NOT EXISTS transactions_run_id_idx ON transactions (run_id)`,
	`CREATE TABLE IF NOT EXISTS review_items (
		id                 TEXT PRIMARY KEY,
		run_id             TEXT NOT NULL REFERENCES runs(id),
		seq                INTEGER NOT NULL,
		file_path          TEXT NOT NULL,
		reason             TEXT NOT NULL,
		suggested_date     TEXT,
		suggested_amount   BIGINT,
		suggested_category TEXT NOT NULL DEFAULT '',
		raw_snippet        TEXT NOT NULL DEFAULT '',
		confidence         TEXT NOT NULL DEFAULT '{}',
		created_at         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_items_run_id_idx ON review_items (run_id)`,
}

// Migrate creates the tables when they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			d.logger.Error("db.migrate.failed", "error", err)
			return common.NewAppError(common.CodeDatabase, "migrate", err)
		}
	}
	d.logger.Info("db.migrate.ok", "statements", len(ddl))
	return nil
}
