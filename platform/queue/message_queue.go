package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medpipe_backend/models"
	"medpipe_backend/platform/cache"
	"medpipe_backend/platform/redis"
)

const PipelineQueue = "pipeline_tasks"

// ErrEmpty means no task arrived before the wait ran out.
var ErrEmpty = redis.ErrQueueEmpty

// TaskQueue carries pipeline tasks keyed by (entityType, entityId).
type TaskQueue struct {
	MQ      cache.MessageQueue
	lockTTL time.Duration
}

func NewTaskQueue(mq cache.MessageQueue, lockTTL time.Duration) *TaskQueue {
	return &TaskQueue{MQ: mq, lockTTL: lockTTL}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *models.Task) error {
	if task.EntityID == "" || task.Kind == "" {
		return fmt.Errorf("task without entity or kind: %w", models.ErrInvalidInput)
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	return q.MQ.PushToQueue(ctx, PipelineQueue, task)
}

func (q *TaskQueue) Dequeue(ctx context.Context, wait time.Duration) (*models.Task, error) {
	raw, err := q.MQ.PopFromQueue(ctx, PipelineQueue, wait)
	if err != nil {
		if errors.Is(err, redis.ErrQueueEmpty) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// Lock marks the task key as running; false means another worker holds it.
func (q *TaskQueue) Lock(ctx context.Context, task *models.Task) (bool, error) {
	return q.MQ.AcquireLock(ctx, task.Key(), q.lockTTL)
}

func (q *TaskQueue) Unlock(ctx context.Context, task *models.Task) error {
	return q.MQ.ReleaseLock(ctx, task.Key())
}
