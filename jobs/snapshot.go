package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklane/stocklane/internal/inventory"
	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

// SnapshotReader supplies a consistent copy of all stock levels.
type SnapshotReader interface {
	Snapshot(ctx context.Context) ([]inventory.StockLevel, error)
}

// StockSnapshotJob writes a timestamped JSON dump of all stock levels.
type StockSnapshotJob struct {
	Reader  SnapshotReader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Dir     string
	clock   func() time.Time
}

// NewStockSnapshotJob initialises the snapshot handler.
func NewStockSnapshotJob(reader SnapshotReader, logger *slog.Logger, metrics *jobmetrics.Metrics, dir string) *StockSnapshotJob {
	return &StockSnapshotJob{
		Reader:  reader,
		Logger:  logger,
		Metrics: metrics,
		Dir:     dir,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type snapshotFile struct {
	TakenAt time.Time              `json:"taken_at"`
	Levels  []inventory.StockLevel `json:"levels"`
}

// Handle executes one snapshot run.
func (j *StockSnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reader == nil {
		return errors.New("stock snapshot: handler not configured")
	}
	var payload SnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	dir := payload.Dir
	if dir == "" {
		dir = j.Dir
	}
	if dir == "" {
		dir = "."
	}

	tracker := j.Metrics.Track(TaskStockSnapshot)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	levels, err := j.Reader.Snapshot(ctx)
	if err != nil {
		resultErr = err
		return resultErr
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		resultErr = fmt.Errorf("stock snapshot: mkdir: %w", err)
		return resultErr
	}
	now := j.clock()
	path := filepath.Join(dir, fmt.Sprintf("stock-%s.json", now.Format("20060102T150405Z")))
	data, err := json.MarshalIndent(snapshotFile{TakenAt: now, Levels: levels}, "", "  ")
	if err != nil {
		resultErr = err
		return resultErr
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		resultErr = fmt.Errorf("stock snapshot: write: %w", err)
		return resultErr
	}

	j.logger().Info("stock snapshot written",
		slog.String("path", path),
		slog.Int("levels", len(levels)),
	)
	return nil
}

func (j *StockSnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
