package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

// Scanner is the part of the scan processor the queue drives.
type Scanner interface {
	Scan(ctx context.Context, imagePath string) (*entity.ScanRecord, error)
}

// Result is reported for every processed job.
type Result struct {
	Job    Job
	Record *entity.ScanRecord
	Err    error
}

type ProcessorQueue struct {
	proc     Scanner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler registers fn for every finished job. fn is called from
// worker goroutines and must be safe for concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc Scanner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx := common.WithRequestID(context.Background(), job.TraceID)
					traceID := common.RequestIDFromContext(ctx)
					logger := q.logger.With("worker_id", workerID, "trace_id", traceID)
					ctx = common.WithLogger(common.WithRequestID(ctx, traceID), logger)
					ctx, cancel := context.WithTimeout(ctx, q.timeout)
					start := time.Now()
					rec, err := q.proc.Scan(ctx, job.ImagePath)
					cancel()

					if err != nil {
						logger.Error("queue.scan.failed", "path", job.ImagePath, "err", err)
					} else {
						logger.Info("queue.scan.ok",
							"path", job.ImagePath,
							"scan_id", rec.ID,
							"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
							"elapsed_ms", time.Since(start).Milliseconds(),
						)
					}
					if q.onResult != nil {
						q.onResult(Result{Job: job, Record: rec, Err: err})
					}
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.ImagePath)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "path", job.ImagePath)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "path", job.ImagePath)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
