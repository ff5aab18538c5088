package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stocklane/stocklane/internal/audit"
)

// memoryRepo is an in-memory RepositoryPort used across the package tests.
// WithTx snapshots state up front and restores it when the callback fails,
// mirroring the rollback behaviour of the real repository.
type memoryRepo struct {
	mu      sync.Mutex
	levels  map[string]*StockLevel
	batches map[int64]*Batch
	audits  []audit.Entry
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		levels:  make(map[string]*StockLevel),
		batches: make(map[int64]*Batch),
	}
}

func pairKey(productID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", productID, warehouseID)
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) seedLevel(productID, warehouseID, qty int64) *StockLevel {
	level := &StockLevel{ID: r.id(), ProductID: productID, WarehouseID: warehouseID, Quantity: qty}
	r.levels[pairKey(productID, warehouseID)] = level
	return level
}

func (r *memoryRepo) seedBatch(b Batch) *Batch {
	b.ID = r.id()
	copied := b
	r.batches[b.ID] = &copied
	return &copied
}

func (r *memoryRepo) snapshot() ([]StockLevel, []Batch, []audit.Entry) {
	levels := make([]StockLevel, 0, len(r.levels))
	for _, l := range r.levels {
		levels = append(levels, *l)
	}
	batches := make([]Batch, 0, len(r.batches))
	for _, b := range r.batches {
		batches = append(batches, *b)
	}
	audits := make([]audit.Entry, len(r.audits))
	copy(audits, r.audits)
	return levels, batches, audits
}

func (r *memoryRepo) restore(levels []StockLevel, batches []Batch, audits []audit.Entry) {
	r.levels = make(map[string]*StockLevel, len(levels))
	for _, l := range levels {
		copied := l
		r.levels[pairKey(l.ProductID, l.WarehouseID)] = &copied
	}
	r.batches = make(map[int64]*Batch, len(batches))
	for _, b := range batches {
		copied := b
		r.batches[b.ID] = &copied
	}
	r.audits = audits
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	levels, batches, audits := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(levels, batches, audits)
		return err
	}
	return nil
}

func (r *memoryRepo) StockLevels(ctx context.Context, productID int64) ([]StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []StockLevel{}
	for _, l := range r.levels {
		if l.ProductID == productID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (r *memoryRepo) WarehouseStock(ctx context.Context, productID, warehouseID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[pairKey(productID, warehouseID)]; ok {
		return l.Quantity, nil
	}
	return 0, nil
}

func (r *memoryRepo) LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []LowStockItem{}
	for _, l := range r.levels {
		if l.Quantity < threshold {
			items = append(items, LowStockItem{ProductID: l.ProductID, WarehouseID: l.WarehouseID, Quantity: l.Quantity})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Quantity < items[j].Quantity })
	return items, nil
}

func (r *memoryRepo) Snapshot(ctx context.Context) ([]StockLevel, error) {
	levels, _, _ := r.snapshot()
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].ProductID != levels[j].ProductID {
			return levels[i].ProductID < levels[j].ProductID
		}
		return levels[i].WarehouseID < levels[j].WarehouseID
	})
	return levels, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetStockForUpdate(ctx context.Context, productID, warehouseID int64) (StockLevel, error) {
	if l, ok := t.repo.levels[pairKey(productID, warehouseID)]; ok {
		return *l, nil
	}
	return StockLevel{}, ErrStockNotFound
}

func (t *memoryTx) CreateStockLevel(ctx context.Context, productID, warehouseID int64) error {
	key := pairKey(productID, warehouseID)
	if _, ok := t.repo.levels[key]; ok {
		return nil
	}
	t.repo.levels[key] = &StockLevel{ID: t.repo.id(), ProductID: productID, WarehouseID: warehouseID}
	return nil
}

func (t *memoryTx) UpdateStockQuantity(ctx context.Context, level StockLevel) error {
	existing, ok := t.repo.levels[pairKey(level.ProductID, level.WarehouseID)]
	if !ok {
		return ErrStockNotFound
	}
	existing.Quantity = level.Quantity
	return nil
}

func (t *memoryTx) ListBatchesForUpdate(ctx context.Context, productID, warehouseID int64) ([]Batch, error) {
	out := []Batch{}
	for _, b := range t.repo.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID && b.Quantity > 0 {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		case !a.ReceivedDate.Equal(b.ReceivedDate):
			return a.ReceivedDate.Before(b.ReceivedDate)
		default:
			return a.ID < b.ID
		}
	})
	return out, nil
}

func (t *memoryTx) UpdateBatchQuantity(ctx context.Context, batchID, quantity int64) error {
	b, ok := t.repo.batches[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	b.Quantity = quantity
	return nil
}

func (t *memoryTx) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	batch.ID = t.repo.id()
	copied := batch
	t.repo.batches[batch.ID] = &copied
	return batch.ID, nil
}

func (t *memoryTx) AppendAuditEntry(ctx context.Context, entry audit.Entry) (int64, error) {
	entry.ID = t.repo.id()
	t.repo.audits = append(t.repo.audits, entry)
	return entry.ID, nil
}
