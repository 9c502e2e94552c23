package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-extractor/internal/entity"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is one document waiting for a worker.
type Job struct {
	Path        string
	ContentHash string
	RunID       uuid.UUID
	// Seq is the position of the document in its batch, used to keep report order.
	Seq         int
	SubmittedAt time.Time
	TraceID     string
}

// Handler turns a job into a transaction. Failures are reported inside the
// transaction, never as a separate error.
type Handler interface {
	Process(ctx context.Context, job Job) entity.Transaction
}

// ResultFunc receives every finished job. It is called from worker goroutines.
type ResultFunc func(job Job, tx entity.Transaction)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
