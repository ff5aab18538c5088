package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stocklane/stocklane/internal/inventory"
	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

// LowStockReader supplies the stock pairs under a threshold.
type LowStockReader interface {
	LowStock(ctx context.Context, threshold int64) ([]inventory.LowStockItem, error)
}

// LowStockCheckJob scans stock levels and raises an alert for each pair
// under the threshold. Alerts dedupe through Redis so a pair that stays
// low does not page on every run.
type LowStockCheckJob struct {
	Reader    LowStockReader
	Redis     *redis.Client
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Threshold int64
	AlertTTL  time.Duration
}

// NewLowStockCheckJob initialises the low stock handler.
func NewLowStockCheckJob(reader LowStockReader, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics, threshold int64) *LowStockCheckJob {
	return &LowStockCheckJob{
		Reader:    reader,
		Redis:     rdb,
		Logger:    logger,
		Metrics:   metrics,
		Threshold: threshold,
		AlertTTL:  6 * time.Hour,
	}
}

// Handle executes one scan.
func (j *LowStockCheckJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reader == nil {
		return errors.New("low stock check: handler not configured")
	}
	var payload LowStockCheckPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = j.Threshold
	}
	if threshold <= 0 {
		threshold = 10
	}

	tracker := j.metrics().Track(TaskStockLowCheck)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	items, err := j.Reader.LowStock(ctx, threshold)
	if err != nil {
		resultErr = err
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return resultErr
	}

	alerted := 0
	for _, item := range items {
		fresh, err := j.claimAlert(ctx, item)
		if err != nil {
			j.logger().Warn("low stock dedupe unavailable", slog.Any("error", err))
			fresh = true
		}
		if !fresh {
			continue
		}
		alerted++
		j.logger().Warn("stock below threshold",
			slog.Int64("product_id", item.ProductID),
			slog.String("sku", item.SKU),
			slog.Int64("warehouse_id", item.WarehouseID),
			slog.Int64("quantity", item.Quantity),
			slog.Int64("threshold", threshold),
		)
		j.Metrics.AddLowStockItems(fmt.Sprintf("%d", item.WarehouseID), 1)
	}

	j.logger().Info("low stock scan finished",
		slog.Int("items", len(items)),
		slog.Int("alerted", alerted),
		slog.Int64("threshold", threshold),
	)
	return nil
}

// claimAlert returns true when no alert for the pair was raised within the
// TTL window.
func (j *LowStockCheckJob) claimAlert(ctx context.Context, item inventory.LowStockItem) (bool, error) {
	if j.Redis == nil {
		return true, nil
	}
	key := fmt.Sprintf("stocklane:lowstock:%d:%d", item.ProductID, item.WarehouseID)
	return j.Redis.SetNX(ctx, key, item.Quantity, j.AlertTTL).Result()
}

func (j *LowStockCheckJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}

func (j *LowStockCheckJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
