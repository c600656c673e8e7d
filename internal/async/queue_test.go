package async

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/expense-tracker/internal/pipeline"
	"github.com/receiptwise/expense-tracker/internal/recognize"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

type stubRecognizer struct{}

func (stubRecognizer) Recognize(ctx context.Context, imageRef string) ([]recognize.Fragment, error) {
	return []recognize.Fragment{
		{Text: "Corner Cafe", Line: 0},
		{Text: "Total $9.99", Line: 1},
	}, nil
}

func TestQueueProcessesJobs(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := pipeline.NewProcessor(nil, stubRecognizer{}, store, nil)
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(8))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Key: "alice/a.jpg", ImageRef: "/tmp/a.jpg", SubmittedAt: time.Now()}))
	require.NoError(t, q.Enqueue(ctx, Job{Key: "alice/b.jpg", ImageRef: "/tmp/b.jpg", SubmittedAt: time.Now()}))

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	recs, err := store.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := pipeline.NewProcessor(nil, stubRecognizer{}, store, nil)
	q := NewProcessorQueue(proc, nil, WithWorkers(1))

	ctx := context.Background()
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	// Dropped, not panicking on a closed channel.
	assert.NoError(t, q.Enqueue(ctx, Job{Key: "alice/late.jpg"}))

	recs, err := store.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
