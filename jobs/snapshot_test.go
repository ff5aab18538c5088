package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/inventory"
)

type stubSnapshotReader struct {
	levels []inventory.StockLevel
	err    error
}

func (s *stubSnapshotReader) Snapshot(ctx context.Context) ([]inventory.StockLevel, error) {
	return s.levels, s.err
}

func TestStockSnapshotWritesFile(t *testing.T) {
	dir := t.TempDir()
	reader := &stubSnapshotReader{levels: []inventory.StockLevel{
		{ID: 1, ProductID: 1, WarehouseID: 1, Quantity: 100},
		{ID: 2, ProductID: 2, WarehouseID: 1, Quantity: 5},
	}}
	job := NewStockSnapshotJob(reader, nil, nil, dir)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	task, err := NewSnapshotTask(SnapshotPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	path := filepath.Join(dir, "stock-20260831T120000Z.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out snapshotFile
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, out.TakenAt.Equal(fixed))
	require.Len(t, out.Levels, 2)
	require.EqualValues(t, 100, out.Levels[0].Quantity)
}

func TestStockSnapshotPayloadDirOverride(t *testing.T) {
	base := t.TempDir()
	override := filepath.Join(base, "override")
	job := NewStockSnapshotJob(&stubSnapshotReader{}, nil, nil, base)

	task, err := NewSnapshotTask(SnapshotPayload{Dir: override})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	entries, err := os.ReadDir(override)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
