package jobs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/inventory"
)

type stubLowStockReader struct {
	items []inventory.LowStockItem
	calls int
}

func (s *stubLowStockReader) LowStock(ctx context.Context, threshold int64) ([]inventory.LowStockItem, error) {
	s.calls++
	out := []inventory.LowStockItem{}
	for _, item := range s.items {
		if item.Quantity < threshold {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestLowStockCheckDedupesAlerts(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	reader := &stubLowStockReader{items: []inventory.LowStockItem{
		{ProductID: 1, SKU: "INV-GEN-0001", WarehouseID: 1, Quantity: 3},
		{ProductID: 2, SKU: "INV-GEN-0002", WarehouseID: 1, Quantity: 50},
	}}
	job := NewLowStockCheckJob(reader, rdb, nil, nil, 10)

	task, err := NewLowStockCheckTask(LowStockCheckPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, reader.calls)
	require.True(t, srv.Exists("stocklane:lowstock:1:1"))
	require.False(t, srv.Exists("stocklane:lowstock:2:1"))

	// A second run within the TTL window finds the same pair but the
	// dedupe key suppresses the alert.
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 2, reader.calls)

	srv.FastForward(job.AlertTTL)
	require.False(t, srv.Exists("stocklane:lowstock:1:1"))
}

func TestLowStockCheckPayloadThreshold(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	reader := &stubLowStockReader{items: []inventory.LowStockItem{
		{ProductID: 2, SKU: "INV-GEN-0002", WarehouseID: 1, Quantity: 50},
	}}
	job := NewLowStockCheckJob(reader, rdb, nil, nil, 10)

	task, err := NewLowStockCheckTask(LowStockCheckPayload{Threshold: 100})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.True(t, srv.Exists("stocklane:lowstock:2:1"))
}

func TestLowStockCheckWithoutRedis(t *testing.T) {
	reader := &stubLowStockReader{items: []inventory.LowStockItem{
		{ProductID: 1, WarehouseID: 1, Quantity: 1},
	}}
	job := NewLowStockCheckJob(reader, nil, nil, nil, 10)

	task, err := NewLowStockCheckTask(LowStockCheckPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
}
