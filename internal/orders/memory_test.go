package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stocklane/stocklane/internal/audit"
	"github.com/stocklane/stocklane/internal/catalog"
	"github.com/stocklane/stocklane/internal/inventory"
	"github.com/stocklane/stocklane/internal/shared"
)

// memoryRepo implements RepositoryPort over maps. WithTx serializes
// callers and restores a pre-call snapshot when the callback fails, so
// rollback semantics match the real repository.
type memoryRepo struct {
	mu        sync.Mutex
	levels    map[string]*inventory.StockLevel
	batches   map[int64]*inventory.Batch
	orders    map[int64]*Order
	items     map[int64]*OrderItem
	allocs    map[int64]*BatchAllocation
	audits    []audit.Entry
	sequences map[OrderType]int64
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		levels:    make(map[string]*inventory.StockLevel),
		batches:   make(map[int64]*inventory.Batch),
		orders:    make(map[int64]*Order),
		items:     make(map[int64]*OrderItem),
		allocs:    make(map[int64]*BatchAllocation),
		sequences: make(map[OrderType]int64),
	}
}

func levelKey(productID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", productID, warehouseID)
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) seedLevel(productID, warehouseID, qty int64) {
	r.levels[levelKey(productID, warehouseID)] = &inventory.StockLevel{ID: r.id(), ProductID: productID, WarehouseID: warehouseID, Quantity: qty}
}

func (r *memoryRepo) seedBatch(b inventory.Batch) int64 {
	b.ID = r.id()
	copied := b
	r.batches[b.ID] = &copied
	return b.ID
}

func (r *memoryRepo) stockQty(productID, warehouseID int64) int64 {
	if l, ok := r.levels[levelKey(productID, warehouseID)]; ok {
		return l.Quantity
	}
	return 0
}

func (r *memoryRepo) batchQty(batchID int64) int64 {
	if b, ok := r.batches[batchID]; ok {
		return b.Quantity
	}
	return 0
}

func (r *memoryRepo) auditsFor(action string) []audit.Entry {
	out := []audit.Entry{}
	for _, e := range r.audits {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memState struct {
	levels  map[string]inventory.StockLevel
	batches map[int64]inventory.Batch
	orders  map[int64]Order
	items   map[int64]OrderItem
	allocs  map[int64]BatchAllocation
	audits  []audit.Entry
	seqs    map[OrderType]int64
	nextID  int64
}

func (r *memoryRepo) capture() memState {
	st := memState{
		levels:  make(map[string]inventory.StockLevel, len(r.levels)),
		batches: make(map[int64]inventory.Batch, len(r.batches)),
		orders:  make(map[int64]Order, len(r.orders)),
		items:   make(map[int64]OrderItem, len(r.items)),
		allocs:  make(map[int64]BatchAllocation, len(r.allocs)),
		audits:  make([]audit.Entry, len(r.audits)),
		seqs:    make(map[OrderType]int64, len(r.sequences)),
		nextID:  r.nextID,
	}
	for k, v := range r.levels {
		st.levels[k] = *v
	}
	for k, v := range r.batches {
		st.batches[k] = *v
	}
	for k, v := range r.orders {
		st.orders[k] = *v
	}
	for k, v := range r.items {
		st.items[k] = *v
	}
	for k, v := range r.allocs {
		st.allocs[k] = *v
	}
	copy(st.audits, r.audits)
	for k, v := range r.sequences {
		st.seqs[k] = v
	}
	return st
}

func (r *memoryRepo) restore(st memState) {
	r.levels = make(map[string]*inventory.StockLevel, len(st.levels))
	for k, v := range st.levels {
		copied := v
		r.levels[k] = &copied
	}
	r.batches = make(map[int64]*inventory.Batch, len(st.batches))
	for k, v := range st.batches {
		copied := v
		r.batches[k] = &copied
	}
	r.orders = make(map[int64]*Order, len(st.orders))
	for k, v := range st.orders {
		copied := v
		r.orders[k] = &copied
	}
	r.items = make(map[int64]*OrderItem, len(st.items))
	for k, v := range st.items {
		copied := v
		r.items[k] = &copied
	}
	r.allocs = make(map[int64]*BatchAllocation, len(st.allocs))
	for k, v := range st.allocs {
		copied := v
		r.allocs[k] = &copied
	}
	r.audits = st.audits
	r.sequences = st.seqs
	// nextID deliberately not restored: ids and order numbers may show
	// gaps after a rolled back attempt.
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.capture()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(st)
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *o
	for _, item := range r.items {
		if item.OrderID == id {
			copied := *item
			for _, alloc := range r.allocs {
				if alloc.OrderItemID == item.ID {
					copied.Allocations = append(copied.Allocations, *alloc)
				}
			}
			out.Items = append(out.Items, copied)
		}
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ID < out.Items[j].ID })
	return &out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetStockForUpdate(ctx context.Context, productID, warehouseID int64) (inventory.StockLevel, error) {
	if l, ok := t.repo.levels[levelKey(productID, warehouseID)]; ok {
		return *l, nil
	}
	return inventory.StockLevel{}, inventory.ErrStockNotFound
}

func (t *memoryTx) CreateStockLevel(ctx context.Context, productID, warehouseID int64) error {
	key := levelKey(productID, warehouseID)
	if _, ok := t.repo.levels[key]; ok {
		return nil
	}
	t.repo.levels[key] = &inventory.StockLevel{ID: t.repo.id(), ProductID: productID, WarehouseID: warehouseID}
	return nil
}

func (t *memoryTx) UpdateStockQuantity(ctx context.Context, level inventory.StockLevel) error {
	existing, ok := t.repo.levels[levelKey(level.ProductID, level.WarehouseID)]
	if !ok {
		return inventory.ErrStockNotFound
	}
	existing.Quantity = level.Quantity
	return nil
}

func (t *memoryTx) ListBatchesForUpdate(ctx context.Context, productID, warehouseID int64) ([]inventory.Batch, error) {
	out := []inventory.Batch{}
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
		return inventory.ErrBatchNotFound
	}
	b.Quantity = quantity
	return nil
}

func (t *memoryTx) InsertBatch(ctx context.Context, batch inventory.Batch) (int64, error) {
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

func (t *memoryTx) NextOrderNumber(ctx context.Context, orderType OrderType) (int64, error) {
	t.repo.sequences[orderType]++
	return t.repo.sequences[orderType], nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	o.ID = t.repo.id()
	copied := o
	t.repo.orders[o.ID] = &copied
	return o.ID, nil
}

func (t *memoryTx) InsertOrderItem(ctx context.Context, item OrderItem) (int64, error) {
	item.ID = t.repo.id()
	copied := item
	t.repo.items[item.ID] = &copied
	return item.ID, nil
}

func (t *memoryTx) InsertAllocation(ctx context.Context, alloc BatchAllocation) (int64, error) {
	alloc.ID = t.repo.id()
	copied := alloc
	t.repo.allocs[alloc.ID] = &copied
	return alloc.ID, nil
}

func (t *memoryTx) SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	o, ok := t.repo.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	return nil
}

// memoryCatalog is a fixed set of products and warehouses for tests.
type memoryCatalog struct {
	products   map[int64]catalog.Product
	warehouses map[int64]catalog.Warehouse
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		products:   make(map[int64]catalog.Product),
		warehouses: make(map[int64]catalog.Warehouse),
	}
}

func (c *memoryCatalog) addProduct(id int64, active, batchTracked bool) {
	c.products[id] = catalog.Product{ID: id, SKU: fmt.Sprintf("INV-GEN-%04d", id), IsActive: active, BatchTracked: batchTracked}
}

func (c *memoryCatalog) addWarehouse(id int64, active bool) {
	c.warehouses[id] = catalog.Warehouse{ID: id, Code: fmt.Sprintf("WH%d", id), IsActive: active}
}

func (c *memoryCatalog) Product(ctx context.Context, id int64) (catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, shared.ErrNotFound
}

func (c *memoryCatalog) Warehouse(ctx context.Context, id int64) (catalog.Warehouse, error) {
	if w, ok := c.warehouses[id]; ok {
		return w, nil
	}
	return catalog.Warehouse{}, shared.ErrNotFound
}
