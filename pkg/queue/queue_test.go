package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestQueueForPriority(t *testing.T) {
	assert.Equal(t, QueueCritical, queueForPriority(1))
	assert.Equal(t, QueueDefault, queueForPriority(2))
	assert.Equal(t, QueueLow, queueForPriority(0))
	assert.Equal(t, QueueLow, queueForPriority(9))
}

func TestConvertAsynqStatus(t *testing.T) {
	done := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	st := convertAsynqStatus(&asynq.TaskInfo{ID: "a", State: asynq.TaskStateCompleted, CompletedAt: done})
	assert.Equal(t, "completed", st.Status)
	assert.Equal(t, 1.0, st.Progress)
	assert.Equal(t, done, st.FinishedAt)

	st = convertAsynqStatus(&asynq.TaskInfo{ID: "b", State: asynq.TaskStateArchived, LastErr: "boom"})
	assert.Equal(t, "failed", st.Status)
	assert.Equal(t, "boom", st.Error)

	st = convertAsynqStatus(&asynq.TaskInfo{ID: "c", State: asynq.TaskStateActive})
	assert.Equal(t, "running", st.Status)
}

func TestTask_PayloadString(t *testing.T) {
	task := &Task{Payload: map[string]interface{}{"fileId": "f1", "size": 3}}
	assert.Equal(t, "f1", task.PayloadString("fileId"))
	assert.Empty(t, task.PayloadString("size"))
	assert.Empty(t, (&Task{}).PayloadString("fileId"))
}
