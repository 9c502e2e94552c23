package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/core/async"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

// RunStore persists a finished run. The repository package implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run entity.Run, txs []entity.Transaction, items []review.Item) error
}

// Report is the outcome of one batch.
type Report struct {
	Run          entity.Run
	Transactions []entity.Transaction // input order, skipped duplicates excluded
	Review       []review.Item
	Summary      review.Summary
	Ingest       ingest.DirStats
}

type BatchOption func(*Batch)

func WithWorkers(n int) BatchOption {
	return func(b *Batch) { b.queueOpts = append(b.queueOpts, async.WithWorkers(n)) }
}

func WithQueueSize(n int) BatchOption {
	return func(b *Batch) { b.queueOpts = append(b.queueOpts, async.WithQueueSize(n)) }
}

func WithProcessTimeout(d time.Duration) BatchOption {
	return func(b *Batch) { b.queueOpts = append(b.queueOpts, async.WithProcessTimeout(d)) }
}

// WithStore saves each finished run.
func WithStore(s RunStore) BatchOption {
	return func(b *Batch) { b.store = s }
}

// WithProgress is called after every finished document.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(b *Batch) { b.progress = fn }
}

// Batch runs a directory of documents through the Processor on a bounded pool.
type Batch struct {
	logger    *slog.Logger
	ingestor  ingest.Ingestor
	proc      *Processor
	store     RunStore
	progress  func(done, total int)
	queueOpts []async.Option
	now       func() time.Time
}

func NewBatch(logger *slog.Logger, ingestor ingest.Ingestor, proc *Processor, opts ...BatchOption) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		logger:   logger,
		ingestor: ingestor,
		proc:     proc,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run processes every receipt under dir. Cancelling ctx stops new work: finished
// documents keep their results and the rest are reported as failed with "cancelled".
// The processor's review queue is reset at the start of each run. The returned
// error is non-nil only when the directory could not be read or the run could not
// be saved.
func (b *Batch) Run(ctx context.Context, dir string) (*Report, error) {
	run := entity.Run{ID: uuid.New(), InputDir: dir, StartedAt: b.now()}
	ctx = common.WithRunID(ctx, run.ID.String())
	b.logger.Info("run.started", "run_id", run.ID, "dir", dir)
	b.proc.review.Clear()

	found, stats, err := b.ingestor.IngestDirectory(ctx, dir)
	if err != nil && ctx.Err() == nil {
		b.logger.Error("run.ingest.failed", "dir", dir, "error", err)
		return nil, err
	}

	var jobs []async.Job
	txs := make([]entity.Transaction, 0, len(found))
	pending := map[int]int{} // job seq -> index in txs
	for _, f := range found {
		switch {
		case f.Err != "":
			tx := entity.Transaction{ID: uuid.New(), RunID: run.ID, FilePath: f.SourcePath}
			txs = append(txs, b.proc.fail(tx, errors.New(f.Err), ""))
		case f.Deduplicated:
			run.Skipped++
			b.logger.Info("run.document.skipped", "path", f.SourcePath, "duplicate_of", f.DuplicateOf)
		default:
			seq := len(jobs)
			jobs = append(jobs, async.Job{
				Path:        f.SourcePath,
				ContentHash: f.HashHex,
				RunID:       run.ID,
				Seq:         seq,
				TraceID:     uuid.NewString(),
			})
			pending[seq] = len(txs)
			txs = append(txs, entity.Transaction{})
		}
	}
	run.Total = len(txs)

	var (
		mu   sync.Mutex
		done int
	)
	record := func(job async.Job, tx entity.Transaction) {
		mu.Lock()
		defer mu.Unlock()
		txs[pending[job.Seq]] = tx
		done++
		if b.progress != nil {
			b.progress(done, len(jobs))
		}
	}

	opts := append([]async.Option{async.WithBaseContext(ctx), async.WithResultFunc(record)}, b.queueOpts...)
	q := async.NewProcessorQueue(b.proc, b.logger, opts...)
	next := 0
	for ; next < len(jobs); next++ {
		if err := q.Enqueue(ctx, jobs[next]); err != nil {
			break
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))
	for ; next < len(jobs); next++ {
		tx := entity.Transaction{ID: uuid.New(), RunID: run.ID, FilePath: jobs[next].Path, ContentHash: jobs[next].ContentHash}
		record(jobs[next], b.proc.cancelled(tx))
	}

	for i := range txs {
		txs[i].RunID = run.ID
		run.Record(&txs[i])
	}
	for _, item := range review.DetectDuplicates(txs) {
		b.proc.review.Add(item)
	}
	finished := b.now()
	run.FinishedAt = &finished

	rep := &Report{
		Run:          run,
		Transactions: txs,
		Review:       b.proc.review.Items(),
		Summary:      b.proc.review.Summary(),
		Ingest:       stats,
	}
	b.logger.Info("run.finished",
		"run_id", run.ID,
		"total", run.Total,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"flagged", run.Flagged,
		"skipped", run.Skipped,
		"cancelled", ctx.Err() != nil,
	)

	if b.store != nil {
		if err := b.store.SaveRun(context.WithoutCancel(ctx), run, txs, rep.Review); err != nil {
			b.logger.Error("run.save.failed", "run_id", run.ID, "error", err)
			return rep, err
		}
	}
	return rep, nil
}

// Status of a finished run for logs and CLI exit codes.
func (r *Report) Status() constants.RunStatus {
	switch {
	case r.Run.Total > 0 && r.Run.Failed == r.Run.Total:
		return constants.StatusFailed
	case r.Run.Flagged > 0 || r.Run.Failed > 0:
		return constants.StatusReview
	default:
		return constants.StatusSucceeded
	}
}
