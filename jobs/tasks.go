package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockLowCheck scans stock levels and flags pairs under threshold.
	TaskStockLowCheck = "stock:low_check"
	// TaskStockSnapshot persists a consistent stock snapshot to disk.
	TaskStockSnapshot = "stock:snapshot"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockCheckPayload configures one low stock scan.
type LowStockCheckPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewLowStockCheckTask constructs an Asynq task.
func NewLowStockCheckTask(payload LowStockCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowCheck, data), nil
}

// SnapshotPayload configures one stock snapshot run.
type SnapshotPayload struct {
	Dir string `json:"dir,omitempty"`
}

// NewSnapshotTask constructs an Asynq task.
func NewSnapshotTask(payload SnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockSnapshot, data), nil
}

// NewIdempotencyCleanupTask constructs an Asynq task with no payload.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueLowStockCheck enqueues a low stock scan.
func (c *Client) EnqueueLowStockCheck(ctx context.Context, payload LowStockCheckPayload) (*asynq.TaskInfo, error) {
	task, err := NewLowStockCheckTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// EnqueueSnapshot enqueues a stock snapshot run.
func (c *Client) EnqueueSnapshot(ctx context.Context, payload SnapshotPayload) (*asynq.TaskInfo, error) {
	task, err := NewSnapshotTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
