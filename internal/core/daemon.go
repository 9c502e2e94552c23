package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/internal/core/async"
	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
	"github.com/joseph-ayodele/receipts-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipts-extractor/internal/review"
)

type DaemonOption func(*Daemon)

// WithDaemonStore saves finished documents as runs on every flush.
func WithDaemonStore(s RunStore) DaemonOption {
	return func(d *Daemon) { d.store = s }
}

// WithFlushInterval sets how often finished documents are written out.
func WithFlushInterval(every time.Duration) DaemonOption {
	return func(d *Daemon) {
		if every > 0 {
			d.flushEvery = every
		}
	}
}

// WithGracePeriod bounds how long shutdown waits for documents in flight.
func WithGracePeriod(grace time.Duration) DaemonOption {
	return func(d *Daemon) {
		if grace > 0 {
			d.grace = grace
		}
	}
}

func WithQueueOptions(opts ...async.Option) DaemonOption {
	return func(d *Daemon) { d.queueOpts = append(d.queueOpts, opts...) }
}

// Daemon processes paths as they arrive (from the inbox watcher) and saves what
// finished as a run every flush interval and once more at shutdown.
type Daemon struct {
	logger     *slog.Logger
	ingestor   ingest.Ingestor
	proc       *Processor
	store      RunStore
	inbox      string
	flushEvery time.Duration
	grace      time.Duration
	queueOpts  []async.Option
	now        func() time.Time

	mu      sync.Mutex
	done    []entity.Transaction
	skipped int
	saved   map[uuid.UUID]struct{} // review items already written
	runs    int
}

func NewDaemon(logger *slog.Logger, ingestor ingest.Ingestor, proc *Processor, inbox string, opts ...DaemonOption) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		logger:     logger,
		ingestor:   ingestor,
		proc:       proc,
		inbox:      inbox,
		flushEvery: time.Minute,
		grace:      30 * time.Second,
		now:        func() time.Time { return time.Now().UTC() },
		saved:      map[uuid.UUID]struct{}{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run consumes paths until ctx is done or paths is closed. Documents already in
// the pool get the grace period to finish; the rest are cancelled.
func (d *Daemon) Run(ctx context.Context, paths <-chan string) error {
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	opts := append(append([]async.Option{}, d.queueOpts...), async.WithBaseContext(workCtx), async.WithResultFunc(d.collect))
	q := async.NewProcessorQueue(d.proc, d.logger, opts...)

	ticker := time.NewTicker(d.flushEvery)
	defer ticker.Stop()

	d.logger.Info("daemon.started", "inbox", d.inbox)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case p, ok := <-paths:
			if !ok {
				break loop
			}
			if err := d.submit(ctx, q, p); err != nil {
				if errors.Is(err, async.ErrClosed) || ctx.Err() != nil {
					break loop
				}
				d.logger.Warn("daemon.submit.failed", "path", p, "error", err)
			}
		case <-ticker.C:
			if err := d.Flush(ctx); err != nil {
				d.logger.Error("daemon.flush.failed", "error", err)
			}
		}
	}

	graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.grace)
	q.Shutdown(graceCtx)
	cancel()
	cancelWork()
	q.Wait()

	err := d.Flush(context.WithoutCancel(ctx))
	d.logger.Info("daemon.stopped", "runs_saved", d.runs)
	return err
}

func (d *Daemon) submit(ctx context.Context, q *async.ProcessorQueue, path string) error {
	res, err := d.ingestor.IngestPath(ctx, path)
	if err != nil {
		return err
	}
	if res.Deduplicated {
		d.mu.Lock()
		d.skipped++
		d.mu.Unlock()
		d.logger.Info("daemon.document.skipped", "path", path, "duplicate_of", res.DuplicateOf)
		return nil
	}
	return q.Enqueue(ctx, async.Job{
		Path:        res.SourcePath,
		ContentHash: res.HashHex,
		TraceID:     uuid.NewString(),
	})
}

func (d *Daemon) collect(_ async.Job, tx entity.Transaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = append(d.done, tx)
}

// Flush saves documents finished since the last flush as one run.
func (d *Daemon) Flush(ctx context.Context) error {
	d.mu.Lock()
	txs, skipped := d.done, d.skipped
	d.done, d.skipped = nil, 0
	d.mu.Unlock()
	if len(txs) == 0 && skipped == 0 {
		return nil
	}

	now := d.now()
	run := entity.Run{ID: uuid.New(), InputDir: d.inbox, StartedAt: now, FinishedAt: &now, Skipped: skipped}
	paths := make(map[string]struct{}, len(txs))
	for i := range txs {
		txs[i].RunID = run.ID
		run.Total++
		run.Record(&txs[i])
		paths[txs[i].FilePath] = struct{}{}
		if txs[i].ProcessedAt.Before(run.StartedAt) && !txs[i].ProcessedAt.IsZero() {
			run.StartedAt = txs[i].ProcessedAt
		}
	}

	var items []review.Item
	d.mu.Lock()
	for _, it := range d.proc.Review().Items() {
		if _, ok := paths[it.FilePath]; !ok {
			continue
		}
		if _, ok := d.saved[it.ID]; ok {
			continue
		}
		d.saved[it.ID] = struct{}{}
		items = append(items, it)
	}
	d.mu.Unlock()

	d.logger.Info("daemon.flush",
		"run_id", run.ID,
		"total", run.Total,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"flagged", run.Flagged,
		"skipped", run.Skipped,
	)
	if d.store == nil {
		return nil
	}
	if err := d.store.SaveRun(ctx, run, txs, items); err != nil {
		return err
	}
	d.mu.Lock()
	d.runs++
	d.mu.Unlock()
	return nil
}
