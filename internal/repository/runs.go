package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

// rows per INSERT; keeps sqlite under its bound-variable limit
const insertChunk = 200

var transactionColumns = []string{
	"id", "run_id", "seq", "file_path", "content_hash", "receipt_date", "amount", "vendor",
	"category", "category_confidence", "description", "ocr_confidence",
	"date_confidence", "amount_confidence", "vendor_confidence",
	"needs_review", "review_reason", "status", "error", "processed_at",
}

var reviewColumns = []string{
	"id", "run_id", "seq", "file_path", "reason", "suggested_date", "suggested_amount",
	"suggested_category", "raw_snippet", "confidence", "created_at",
}

var runColumns = []string{
	"id", "input_dir", "started_at", "finished_at", "total", "succeeded", "failed", "flagged", "skipped",
}

type RunRepository interface {
	SaveRun(ctx context.Context, run entity.Run, txs []entity.Transaction, items []review.Item) error
	SeenHash(ctx context.Context, hash string) (bool, error)
	ListRuns(ctx context.Context, limit int) ([]entity.Run, error)
	ListTransactions(ctx context.Context, runID uuid.UUID) ([]entity.Transaction, error)
	ListReviewItems(ctx context.Context, runID uuid.UUID) ([]review.Item, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger}
}

// SaveRun writes the run with its transactions and review items in one database transaction.
func (r *runRepo) SaveRun(ctx context.Context, run entity.Run, txs []entity.Transaction, items []review.Item) (err error) {
	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return common.NewAppError(common.CodeDatabase, "begin", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("db.rollback.failed", "run_id", run.ID, "error", rbErr)
			}
		}
	}()

	q, args := r.db.builder().Insert("runs").
		Columns(runColumns...).
		Values(run.ID.String(), run.InputDir, formatTime(run.StartedAt), formatTimePtr(run.FinishedAt),
			run.Total, run.Succeeded, run.Failed, run.Flagged, run.Skipped).
		Query()
	if err = tx.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("db.run.insert_failed", "run_id", run.ID, "error", err)
		return common.NewAppError(common.CodeDatabase, "insert run", err)
	}

	for start := 0; start < len(txs); start += insertChunk {
		end := min(start+insertChunk, len(txs))
		ins := r.db.builder().Insert("transactions").Columns(transactionColumns...)
		for i, t := range txs[start:end] {
			ins.Values(t.ID.String(), run.ID.String(), start+i, t.FilePath, t.ContentHash, t.Date, t.Amount, t.Vendor,
				t.Category, t.CategoryConfidence, t.Description, t.OCRConfidence,
				t.DateConfidence, t.AmountConfidence, t.VendorConfidence,
				t.NeedsReview, t.ReviewReason, string(t.Status), t.Error, formatTime(t.ProcessedAt))
		}
		q, args := ins.Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("db.transactions.insert_failed", "run_id", run.ID, "error", err)
			return common.NewAppError(common.CodeDatabase, "insert transactions", err)
		}
	}

	for start := 0; start < len(items); start += insertChunk {
		end := min(start+insertChunk, len(items))
		ins := r.db.builder().Insert("review_items").Columns(reviewColumns...)
		for i, it := range items[start:end] {
			conf, mErr := json.Marshal(it.Confidence)
			if mErr != nil {
				err = mErr
				return common.NewAppError(common.CodeDatabase, "encode confidence", err)
			}
			ins.Values(it.ID.String(), run.ID.String(), start+i, it.FilePath, it.Reason, it.SuggestedDate, it.SuggestedAmount,
				it.SuggestedCategory, it.RawSnippet, string(conf), formatTime(it.CreatedAt))
		}
		q, args := ins.Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("db.review.insert_failed", "run_id", run.ID, "error", err)
			return common.NewAppError(common.CodeDatabase, "insert review items", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError(common.CodeDatabase, "commit", err)
	}
	r.logger.Info("db.run.saved", "run_id", run.ID, "transactions", len(txs), "review_items", len(items))
	return nil
}

// SeenHash reports whether a document with this content hash was processed
// by an earlier run. Failed attempts do not count so they get retried.
func (r *runRepo) SeenHash(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	q, args := r.db.builder().Select("id").
		From(entsql.Table("transactions")).
		Where(entsql.And(
			entsql.EQ("content_hash", hash),
			entsql.NEQ("status", string(constants.StatusFailed)),
		)).
		Limit(1).
		Query()
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return false, common.NewAppError(common.CodeDatabase, "lookup hash", err)
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, common.NewAppError(common.CodeDatabase, "lookup hash", err)
	}
	return found, nil
}

// ListRuns returns the most recent runs first.
func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]entity.Run, error) {
	sel := r.db.builder().Select(runColumns...).
		From(entsql.Table("runs")).
		OrderBy(entsql.Desc("started_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list runs", err)
	}
	defer rows.Close()

	var out []entity.Run
	for rows.Next() {
		var (
			run         entity.Run
			id, started string
			finished    sql.NullString
		)
		if err := rows.Scan(&id, &run.InputDir, &started, &finished,
			&run.Total, &run.Succeeded, &run.Failed, &run.Flagged, &run.Skipped); err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan run", err)
		}
		var err error
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan run", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list runs", err)
	}
	return out, nil
}

func (r *runRepo) ListTransactions(ctx context.Context, runID uuid.UUID) ([]entity.Transaction, error) {
	q, args := r.db.builder().Select(transactionColumns...).
		From(entsql.Table("transactions")).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy("seq").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list transactions", err)
	}
	defer rows.Close()

	var out []entity.Transaction
	for rows.Next() {
		var (
			t                       entity.Transaction
			id, rid, status, procAt string
			seq                     int
			date, vendor, errMsg    sql.NullString
			amount                  sql.NullInt64
		)
		if err := rows.Scan(&id, &rid, &seq, &t.FilePath, &t.ContentHash, &date, &amount, &vendor,
			&t.Category, &t.CategoryConfidence, &t.Description, &t.OCRConfidence,
			&t.DateConfidence, &t.AmountConfidence, &t.VendorConfidence,
			&t.NeedsReview, &t.ReviewReason, &status, &errMsg, &procAt); err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan transaction", err)
		}
		t.ID, _ = uuid.Parse(id)
		t.RunID = runID
		t.Date = nullString(date)
		t.Vendor = nullString(vendor)
		t.Error = nullString(errMsg)
		if amount.Valid {
			v := amount.Int64
			t.Amount = &v
		}
		t.Status = constants.RunStatus(status)
		t.ProcessedAt = parseTime(procAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list transactions", err)
	}
	return out, nil
}

func (r *runRepo) ListReviewItems(ctx context.Context, runID uuid.UUID) ([]review.Item, error) {
	q, args := r.db.builder().Select(reviewColumns...).
		From(entsql.Table("review_items")).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy("seq").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list review items", err)
	}
	defer rows.Close()

	var out []review.Item
	for rows.Next() {
		var (
			it                     review.Item
			id, rid, conf, created string
			seq                    int
			date                   sql.NullString
			amount                 sql.NullInt64
		)
		if err := rows.Scan(&id, &rid, &seq, &it.FilePath, &it.Reason, &date, &amount,
			&it.SuggestedCategory, &it.RawSnippet, &conf, &created); err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan review item", err)
		}
		it.ID, _ = uuid.Parse(id)
		it.SuggestedDate = nullString(date)
		if amount.Valid {
			v := amount.Int64
			it.SuggestedAmount = &v
		}
		if err := json.Unmarshal([]byte(conf), &it.Confidence); err != nil {
			r.logger.Warn("db.review.confidence_invalid", "id", id, "error", err)
		}
		it.CreatedAt = parseTime(created)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "list review items", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
