package inventory

import (
	"context"
	"errors"
	"fmt"
)

// TxStore exposes the row operations the ledger and allocator need inside
// one open transaction. Implementations must hand out row locks on the
// *ForUpdate calls so concurrent deltas against the same pair serialize.
//
// ListBatchesForUpdate returns only batches with quantity > 0, ordered for
// FEFO consumption: expiry date ascending with unexpiring batches last,
// then received date ascending, then id ascending.
type TxStore interface {
	GetStockForUpdate(ctx context.Context, productID, warehouseID int64) (StockLevel, error)
	CreateStockLevel(ctx context.Context, productID, warehouseID int64) error
	UpdateStockQuantity(ctx context.Context, level StockLevel) error
	ListBatchesForUpdate(ctx context.Context, productID, warehouseID int64) ([]Batch, error)
	UpdateBatchQuantity(ctx context.Context, batchID, quantity int64) error
	InsertBatch(ctx context.Context, batch Batch) (int64, error)
}

// Ledger owns StockLevel mutation. All quantity changes go through
// ApplyDelta; nothing else writes stock rows.
type Ledger struct{}

// NewLedger constructs a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// ApplyDelta locks the (product, warehouse) stock row, creating it at zero
// on first use, and applies delta. It returns the level before and after
// the change. A delta that would drive quantity below zero is rejected
// without mutating; a zero delta only reads.
func (l *Ledger) ApplyDelta(ctx context.Context, store TxStore, productID, warehouseID, delta int64) (StockLevel, StockLevel, error) {
	if productID == 0 || warehouseID == 0 {
		return StockLevel{}, StockLevel{}, errors.New("inventory: product and warehouse required")
	}
	level, err := store.GetStockForUpdate(ctx, productID, warehouseID)
	if errors.Is(err, ErrStockNotFound) {
		// Create under the same lock discipline used for the delta, so two
		// first-time inserts cannot race into duplicate rows.
		if err := store.CreateStockLevel(ctx, productID, warehouseID); err != nil {
			return StockLevel{}, StockLevel{}, err
		}
		level, err = store.GetStockForUpdate(ctx, productID, warehouseID)
	}
	if err != nil {
		return StockLevel{}, StockLevel{}, err
	}

	before := level
	next := level.Quantity + delta
	if next < 0 {
		return before, before, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, level.Quantity, -delta)
	}
	if delta == 0 {
		return before, before, nil
	}
	level.Quantity = next
	if err := store.UpdateStockQuantity(ctx, level); err != nil {
		return StockLevel{}, StockLevel{}, err
	}
	return before, level, nil
}
