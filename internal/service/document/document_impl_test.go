package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/paper-extractor/internal/models"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/internal/utils/validator"
	"github.com/feichai0017/paper-extractor/pkg/converters"
	"github.com/feichai0017/paper-extractor/pkg/logger"
	"github.com/feichai0017/paper-extractor/pkg/queue"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	args := m.Called(ctx, taskID)
	status, _ := args.Get(0).(*queue.TaskStatus)
	return status, args.Error(1)
}

func (m *mockQueue) CancelTask(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockQueue) SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error {
	return m.Called(ctx, status).Error(0)
}

type mockStorage struct {
	mock.Mock
	mu     sync.Mutex
	stored map[string][]byte
}

func (m *mockStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, _ := io.ReadAll(reader)
	m.mu.Lock()
	if m.stored == nil {
		m.stored = make(map[string][]byte)
	}
	m.stored[key] = data
	m.mu.Unlock()

	args := m.Called(ctx, mock.Anything, key)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return m.Called(ctx, threshold).Error(0)
}

func (m *mockStorage) object(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored[key]
}

type fakeExtractor struct {
	result *pipeline.Result
	err    error
	seen   []byte
}

func (f *fakeExtractor) Process(ctx context.Context, path string) (*pipeline.Result, error) {
	f.seen, _ = os.ReadFile(path)
	if f.result != nil {
		f.result.Path = path
	}
	return f.result, f.err
}

type fakeValidator struct {
	valid bool
}

func (f fakeValidator) ValidateFile(file *multipart.FileHeader) (*validator.ValidationResult, error) {
	res := &validator.ValidationResult{IsValid: f.valid, FileInfo: validator.FileInfo{Filename: file.Filename}}
	if !f.valid {
		res.Errors = []validator.ValidationError{{Code: validator.CodeMalformedPDF, Message: "broken"}}
	}
	return res, nil
}

func fileHeader(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func withStatus(status string) func(*queue.TaskStatus) bool {
	return func(s *queue.TaskStatus) bool { return s.Status == status }
}

func sampleResult() *pipeline.Result {
	rec := models.Record{
		Title:       "Employee Satisfaction and Productivity",
		Variables:   "Employee satisfaction;Productivity",
		Theories:    "Herzberg's Two-Factor Theory",
		Hypotheses:  "Job satisfaction positively impacts productivity",
		Methodology: "Survey research",
		Datasets:    "200 employees in IT sector",
		Results:     "Strong correlation found",
		Limitation:  "Small sample size",
	}
	return &pipeline.Result{
		Record: &rec,
		State: &pipeline.DocumentState{
			PageCount:  2,
			Records:    []models.Record{rec},
			KnownTitle: rec.Title,
			Pages: []pipeline.PageOutcome{
				{Index: 0, Method: models.MethodNative, Relevant: true, Attempts: 1, Accepted: true},
				{Index: 1, Method: models.MethodNative},
			},
		},
	}
}

func newTestService(ex Extractor, v FileValidator) (*DocumentService, *mockQueue, *mockStorage) {
	q := &mockQueue{}
	st := &mockStorage{}
	svc := NewService(ex, v, q, st, logger.NewTestLogger(), &ServiceConfig{
		QueuePriority:   2,
		MaxConcurrent:   2,
		RetentionPeriod: time.Hour,
	})
	return svc, q, st
}

func TestProcessFile_QueuesValidUpload(t *testing.T) {
	svc, q, st := newTestService(nil, fakeValidator{valid: true})
	header := fileHeader(t, "paper.pdf", []byte("%PDF-1.4 body"))

	st.On("Store", mock.Anything, mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "uploads/") && strings.HasSuffix(key, "/paper.pdf")
	})).Return("uploads/id/paper.pdf", nil)
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *queue.Task) bool {
		return task.Type == queue.TaskTypeDocumentExtract && task.PayloadString("fileId") == "uploads/id/paper.pdf"
	})).Return(nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("pending"))).Return(nil)

	f, err := header.Open()
	require.NoError(t, err)
	defer f.Close()

	task, err := svc.ProcessFile(context.Background(), f, header)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, "paper.pdf", task.Metadata["filename"])
	assert.NotEmpty(t, task.ID)

	q.AssertExpectations(t)
	st.AssertExpectations(t)

	require.Len(t, q.Calls, 2)
	assert.Equal(t, "SaveFinalStatus", q.Calls[0].Method)
	assert.Equal(t, "Enqueue", q.Calls[1].Method)
}

func TestProcessFile_RejectsInvalidUpload(t *testing.T) {
	svc, q, st := newTestService(nil, fakeValidator{valid: false})
	header := fileHeader(t, "paper.pdf", []byte("junk"))

	f, err := header.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = svc.ProcessFile(context.Background(), f, header)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validator.CodeMalformedPDF, verr.Result.Errors[0].Code)

	q.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFile_EnqueueFailure(t *testing.T) {
	svc, q, st := newTestService(nil, nil)
	header := fileHeader(t, "paper.pdf", []byte("%PDF"))

	st.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("k", nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("pending"))).Return(nil).Once()
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(func(s *queue.TaskStatus) bool {
		return s.Status == "failed" && s.Error == "redis down"
	})).Return(nil).Once()

	f, err := header.Open()
	require.NoError(t, err)
	defer f.Close()

	_, err = svc.ProcessFile(context.Background(), f, header)
	assert.ErrorContains(t, err, "failed to enqueue task")
	q.AssertExpectations(t)
}

func TestProcessBatch(t *testing.T) {
	svc, q, st := newTestService(nil, nil)
	st.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("k", nil)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil)
	q.On("SaveFinalStatus", mock.Anything, mock.Anything).Return(nil)

	files := []*multipart.FileHeader{
		fileHeader(t, "a.pdf", []byte("%PDF a")),
		fileHeader(t, "b.pdf", []byte("%PDF b")),
		fileHeader(t, "c.pdf", []byte("%PDF c")),
	}
	tasks, err := svc.ProcessBatch(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
	q.AssertNumberOfCalls(t, "Enqueue", 3)
}

func TestHandleDocument_StoresResults(t *testing.T) {
	ex := &fakeExtractor{result: sampleResult()}
	svc, q, st := newTestService(ex, nil)

	st.On("Get", mock.Anything, "uploads/t1/paper.pdf").
		Return(io.NopCloser(strings.NewReader("%PDF-1.4 content")), nil)
	st.On("Store", mock.Anything, mock.Anything, "results/t1.json").Return("results/t1.json", nil)
	st.On("Store", mock.Anything, mock.Anything, "results/t1.tsv").Return("results/t1.tsv", nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("running"))).Return(nil).Once()
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("completed"))).Return(nil).Once()

	task := &queue.Task{
		ID:       "t1",
		Type:     queue.TaskTypeDocumentExtract,
		Payload:  map[string]interface{}{"fileId": "uploads/t1/paper.pdf", "filename": "paper.pdf"},
		Metadata: map[string]string{"size": "16"},
	}
	require.NoError(t, svc.HandleDocument(context.Background(), task))

	assert.Equal(t, "%PDF-1.4 content", string(ex.seen))
	_, err := os.Stat(ex.result.Path)
	assert.True(t, os.IsNotExist(err), "temp file must be removed")

	var doc converters.ProcessedDocument
	require.NoError(t, json.Unmarshal(st.object("results/t1.json"), &doc))
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, "paper.pdf", doc.Metadata.FileName)
	assert.Equal(t, int64(16), doc.Metadata.FileSize)
	assert.Equal(t, 1, doc.Metadata.RelevantPages)
	require.NotNil(t, doc.Record)
	assert.Equal(t, "Employee Satisfaction and Productivity", doc.Record.Title)

	lines := strings.Split(strings.TrimRight(string(st.object("results/t1.tsv")), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, models.HeaderTSV(), lines[0])
	assert.Equal(t, 7, strings.Count(lines[1], "\t"))

	q.AssertExpectations(t)
}

func TestHandleDocument_EmptyDocument(t *testing.T) {
	res := sampleResult()
	res.Record = nil
	res.State.Records = nil
	ex := &fakeExtractor{result: res}
	svc, q, st := newTestService(ex, nil)

	st.On("Get", mock.Anything, "f").Return(io.NopCloser(strings.NewReader("%PDF")), nil)
	st.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("k", nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("running"))).Return(nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("empty"))).Return(nil).Once()

	task := &queue.Task{ID: "t2", Payload: map[string]interface{}{"fileId": "f"}}
	require.NoError(t, svc.HandleDocument(context.Background(), task))

	assert.Equal(t, models.HeaderTSV()+"\n", string(st.object("results/t2.tsv")))
	q.AssertExpectations(t)
}

func TestHandleDocument_Unreadable(t *testing.T) {
	ex := &fakeExtractor{err: pipeline.ErrDocumentUnreadable}
	svc, q, st := newTestService(ex, nil)

	st.On("Get", mock.Anything, "f").Return(io.NopCloser(strings.NewReader("junk")), nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(withStatus("running"))).Return(nil)
	q.On("SaveFinalStatus", mock.Anything, mock.MatchedBy(func(s *queue.TaskStatus) bool {
		return s.Status == "failed" && strings.Contains(s.Error, "document unreadable")
	})).Return(nil).Once()

	err := svc.HandleDocument(context.Background(), &queue.Task{ID: "t3", Payload: map[string]interface{}{"fileId": "f"}})
	assert.ErrorIs(t, err, pipeline.ErrDocumentUnreadable)
	st.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	q.AssertExpectations(t)
}

func TestHandleDocument_InvalidTask(t *testing.T) {
	svc, _, _ := newTestService(nil, nil)
	assert.ErrorIs(t, svc.HandleDocument(context.Background(), nil), ErrInvalidTask)
	assert.ErrorIs(t, svc.HandleDocument(context.Background(), &queue.Task{ID: "x"}), ErrInvalidTask)
}

func TestGetProcessedDocument(t *testing.T) {
	svc, q, st := newTestService(nil, nil)
	q.On("GetTaskStatus", mock.Anything, "done").Return(&queue.TaskStatus{TaskID: "done", Status: "completed"}, nil)
	q.On("GetTaskStatus", mock.Anything, "busy").Return(&queue.TaskStatus{TaskID: "busy", Status: "running"}, nil)
	q.On("GetTaskStatus", mock.Anything, "gone").Return(nil, queue.ErrTaskNotFound)

	body, err := json.Marshal(converters.ProcessedDocument{TaskID: "done", Status: "completed"})
	require.NoError(t, err)
	st.On("Get", mock.Anything, "results/done.json").Return(io.NopCloser(bytes.NewReader(body)), nil)

	doc, err := svc.GetProcessedDocument(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, "done", doc.TaskID)

	_, err = svc.GetProcessedDocument(context.Background(), "busy")
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = svc.GetProcessedDocument(context.Background(), "gone")
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)
}

func TestGetResultTSV(t *testing.T) {
	svc, q, st := newTestService(nil, nil)
	q.On("GetTaskStatus", mock.Anything, "t").Return(&queue.TaskStatus{TaskID: "t", Status: "empty"}, nil)
	st.On("Get", mock.Anything, "results/t.tsv").Return(io.NopCloser(strings.NewReader(models.HeaderTSV()+"\n")), nil)

	data, err := svc.GetResultTSV(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, models.HeaderTSV()+"\n", string(data))
}

func TestGetProcessingStatus_MapsStatus(t *testing.T) {
	svc, q, _ := newTestService(nil, nil)
	q.On("GetTaskStatus", mock.Anything, "t").Return(&queue.TaskStatus{TaskID: "t", Status: "active", Progress: 0.5}, nil)

	task, err := svc.GetProcessingStatus(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, task.Status)
	assert.Equal(t, 0.5, task.Progress)
}

func TestCancelAndCleanup(t *testing.T) {
	svc, q, st := newTestService(nil, nil)
	q.On("CancelTask", mock.Anything, "t").Return(nil)
	st.On("CleanupBefore", mock.Anything, mock.MatchedBy(func(ts time.Time) bool {
		return time.Since(ts) >= time.Hour
	})).Return(nil)

	require.NoError(t, svc.CancelTask(context.Background(), "t"))
	require.NoError(t, svc.CleanupTasks(context.Background()))
	q.AssertExpectations(t)
	st.AssertExpectations(t)
}
