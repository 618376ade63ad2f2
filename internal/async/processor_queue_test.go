package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/common"
	"github.com/joseph-ayodele/techtime/internal/entity"
)

type fakeScanner struct {
	calls int32
}

func (f *fakeScanner) Scan(_ context.Context, path string) (*entity.ScanRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	if path == "bad.jpg" {
		return nil, errors.New("boom")
	}
	return &entity.ScanRecord{ID: "scan-" + path, ImagePath: path}, nil
}

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	scanner := &fakeScanner{}
	var (
		mu      sync.Mutex
		results []Result
	)
	q := NewProcessorQueue(scanner, nil,
		WithWorkers(3),
		WithQueueSize(2),
		WithProcessTimeout(time.Second),
		WithResultHandler(func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		}),
	)

	paths := []string{"a.jpg", "b.jpg", "bad.jpg", "c.jpg", "d.jpg"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{ImagePath: p}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, int32(len(paths)), atomic.LoadInt32(&scanner.calls))
	require.Len(t, results, len(paths))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, "bad.jpg", r.Job.ImagePath)
		}
		assert.False(t, r.Job.SubmittedAt.IsZero())
	}
	assert.Equal(t, 1, failed)

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{ImagePath: "late.jpg"}), ErrQueueClosed)
	q.Shutdown(ctx)
}

type traceScanner struct {
	mu  sync.Mutex
	ids map[string]string
}

func (s *traceScanner) Scan(ctx context.Context, path string) (*entity.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[path] = common.RequestIDFromContext(ctx)
	return &entity.ScanRecord{ID: path}, nil
}

func TestProcessorQueue_PropagatesTraceID(t *testing.T) {
	scanner := &traceScanner{ids: map[string]string{}}
	q := NewProcessorQueue(scanner, nil, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{ImagePath: "a.jpg", TraceID: "trace-a"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{ImagePath: "b.jpg"}))
	q.Shutdown(context.Background())

	assert.Equal(t, "trace-a", scanner.ids["a.jpg"])
	assert.NotEmpty(t, scanner.ids["b.jpg"])
}
