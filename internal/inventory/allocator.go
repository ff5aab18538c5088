package inventory

import (
	"context"
	"fmt"
)

// Allocator owns Batch mutation. It selects batches in FEFO order and
// consumes previously planned allocations.
type Allocator struct{}

// NewAllocator constructs an Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Plan selects batches covering quantity at the given location. The store
// returns candidates already locked and in FEFO order; Plan consumes each
// greedily until satisfied.
//
// A zero quantity yields an empty plan. A location with no batches also
// yields an empty plan: the product is not batch tracked there and the
// caller falls back to a plain ledger decrement. If batches exist but
// cannot cover quantity, Plan fails without mutating anything.
func (a *Allocator) Plan(ctx context.Context, store TxStore, productID, warehouseID, quantity int64) ([]BatchConsumption, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return nil, nil
	}
	batches, err := store.ListBatchesForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}

	remaining := quantity
	plan := make([]BatchConsumption, 0, len(batches))
	for _, batch := range batches {
		if remaining == 0 {
			break
		}
		take := batch.Quantity
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		plan = append(plan, BatchConsumption{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Quantity:    take,
			Before:      batch.Quantity,
			Remaining:   batch.Quantity - take,
		})
		remaining -= take
	}
	if remaining > 0 {
		return nil, fmt.Errorf("%w: short %d of %d for product %d at warehouse %d",
			ErrInsufficientBatchStock, remaining, quantity, productID, warehouseID)
	}
	return plan, nil
}

// Consume applies a plan produced by Plan inside the same transaction.
// Every consumed batch keeps a non-negative quantity.
func (a *Allocator) Consume(ctx context.Context, store TxStore, plan []BatchConsumption) error {
	for _, step := range plan {
		if step.Remaining < 0 {
			return fmt.Errorf("%w: batch %s would go negative", ErrInsufficientBatchStock, step.BatchNumber)
		}
		if err := store.UpdateBatchQuantity(ctx, step.BatchID, step.Remaining); err != nil {
			return err
		}
	}
	return nil
}
