package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/audit"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	StockLevels(ctx context.Context, productID int64) ([]StockLevel, error)
	WarehouseStock(ctx context.Context, productID, warehouseID int64) (int64, error)
	LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error)
	Snapshot(ctx context.Context) ([]StockLevel, error)
}

// Service coordinates direct stock operations: batch intake and manual
// adjustments. Order driven movements go through the order processor,
// which reuses the same ledger and allocator.
type Service struct {
	repo     RepositoryPort
	ledger   *Ledger
	recorder *audit.Recorder
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, ledger: ledger, recorder: recorder}
}

// ReceiveBatchInput describes a batch arriving at a warehouse.
type ReceiveBatchInput struct {
	ProductID   int64
	WarehouseID int64
	BatchNumber string
	Quantity    int64
	ExpiryDate  *time.Time
	ActorID     int64
}

// AdjustInput describes a manual signed stock correction.
type AdjustInput struct {
	ProductID   int64
	WarehouseID int64
	Delta       int64
	Reason      string
	ActorID     int64
}

// ReceiveBatch records a new batch and increases the stock level by its
// quantity, in one transaction with the audit entries.
func (s *Service) ReceiveBatch(ctx context.Context, input ReceiveBatchInput) (Batch, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return Batch{}, errors.New("inventory: product and warehouse required")
	}
	if input.Quantity <= 0 {
		return Batch{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, input.Quantity)
	}
	// Suppliers do not always ship a batch reference; generate one so the
	// batch stays addressable in allocations and the audit trail.
	if strings.TrimSpace(input.BatchNumber) == "" {
		input.BatchNumber = "BN-" + uuid.NewString()
	}

	batch := Batch{
		ProductID:    input.ProductID,
		WarehouseID:  input.WarehouseID,
		BatchNumber:  strings.TrimSpace(input.BatchNumber),
		Quantity:     input.Quantity,
		ExpiryDate:   input.ExpiryDate,
		ReceivedDate: time.Now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		id, err := tx.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		batch.ID = id

		before, after, err := s.ledger.ApplyDelta(ctx, tx, input.ProductID, input.WarehouseID, input.Quantity)
		if err != nil {
			return err
		}

		reason := fmt.Sprintf("Batch received: %s", batch.BatchNumber)
		if _, err := s.recorder.Record(ctx, tx, input.ActorID, audit.ActionBatchCreate, audit.EntityBatch, batch.ID,
			nil, quantitySnapshot(batch.Quantity), reason); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx, input.ActorID, audit.ActionStockAdjust, audit.EntityStockLevel, after.ID,
			quantitySnapshot(before.Quantity), quantitySnapshot(after.Quantity), reason); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// Adjust applies a manual signed delta with a mandatory reason.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (StockLevel, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return StockLevel{}, errors.New("inventory: product and warehouse required")
	}
	if input.Delta == 0 {
		return StockLevel{}, fmt.Errorf("%w: delta must be non zero", ErrInvalidQuantity)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return StockLevel{}, errors.New("inventory: adjustment reason required")
	}

	var result StockLevel
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		before, after, err := s.ledger.ApplyDelta(ctx, tx, input.ProductID, input.WarehouseID, input.Delta)
		if err != nil {
			return err
		}
		result = after
		_, err = s.recorder.Record(ctx, tx, input.ActorID, audit.ActionStockAdjust, audit.EntityStockLevel, after.ID,
			quantitySnapshot(before.Quantity), quantitySnapshot(after.Quantity), input.Reason)
		return err
	})
	if err != nil {
		return StockLevel{}, err
	}
	return result, nil
}

// StockLevels lists committed stock rows for a product.
func (s *Service) StockLevels(ctx context.Context, productID int64) ([]StockLevel, error) {
	if productID == 0 {
		return nil, errors.New("inventory: product required")
	}
	return s.repo.StockLevels(ctx, productID)
}

// WarehouseStock returns the committed quantity for one pair.
func (s *Service) WarehouseStock(ctx context.Context, productID, warehouseID int64) (int64, error) {
	if productID == 0 || warehouseID == 0 {
		return 0, errors.New("inventory: product and warehouse required")
	}
	return s.repo.WarehouseStock(ctx, productID, warehouseID)
}

// LowStock lists pairs under threshold.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvalidQuantity)
	}
	return s.repo.LowStock(ctx, threshold)
}

// Snapshot reads a consistent copy of all stock levels.
func (s *Service) Snapshot(ctx context.Context) ([]StockLevel, error) {
	return s.repo.Snapshot(ctx)
}

func quantitySnapshot(qty int64) map[string]int64 {
	return map[string]int64{"quantity": qty}
}
