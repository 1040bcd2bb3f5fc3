package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

type fakeHandler struct {
	err  error
	seen []*queue.Task
}

func (f *fakeHandler) HandleDocument(ctx context.Context, task *queue.Task) error {
	f.seen = append(f.seen, task)
	return f.err
}

func (f *fakeHandler) CleanupTasks(ctx context.Context) error {
	return nil
}

func newTestWorker(t *testing.T, h Handler) *DocumentWorker {
	t.Helper()
	w, err := NewDocumentWorker(&Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 1,
		Queues:      queue.Queues(),
	}, h, logger.NewTestLogger())
	require.NoError(t, err)
	return w
}

func extractTask(t *testing.T, task queue.Task) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(task)
	require.NoError(t, err)
	return asynq.NewTask(queue.TaskTypeDocumentExtract, payload)
}

func TestHandleDocumentExtract_Success(t *testing.T) {
	h := &fakeHandler{}
	w := newTestWorker(t, h)

	err := w.handleDocumentExtract(context.Background(), extractTask(t, queue.Task{
		ID:      "t1",
		Payload: map[string]interface{}{"fileId": "uploads/t1/a.pdf"},
	}))
	require.NoError(t, err)
	require.Len(t, h.seen, 1)
	assert.Equal(t, "uploads/t1/a.pdf", h.seen[0].PayloadString("fileId"))
}

func TestHandleDocumentExtract_UnreadableSkipsRetry(t *testing.T) {
	h := &fakeHandler{err: fmt.Errorf("failed to process document: %w", pipeline.ErrDocumentUnreadable)}
	w := newTestWorker(t, h)

	err := w.handleDocumentExtract(context.Background(), extractTask(t, queue.Task{ID: "t1"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleDocumentExtract_TransientRetries(t *testing.T) {
	h := &fakeHandler{err: errors.New("storage timeout")}
	w := newTestWorker(t, h)

	err := w.handleDocumentExtract(context.Background(), extractTask(t, queue.Task{ID: "t1"}))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleDocumentExtract_BadPayload(t *testing.T) {
	w := newTestWorker(t, &fakeHandler{})
	err := w.handleDocumentExtract(context.Background(), asynq.NewTask(queue.TaskTypeDocumentExtract, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewDocumentWorker_RequiresHandler(t *testing.T) {
	_, err := NewDocumentWorker(&Config{}, nil, logger.NewTestLogger())
	assert.Error(t, err)
}
