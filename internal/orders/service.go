package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/audit"
	"github.com/stocklane/stocklane/internal/catalog"
	"github.com/stocklane/stocklane/internal/inventory"
	"github.com/stocklane/stocklane/internal/shared"
)

// CatalogPort supplies read-only master data. The processor never writes
// through it.
type CatalogPort interface {
	Product(ctx context.Context, id int64) (catalog.Product, error)
	Warehouse(ctx context.Context, id int64) (catalog.Warehouse, error)
}

// CapabilityFn reports whether the acting user may create orders of the
// given type. The decision is made outside this core; the processor only
// consumes the verdict.
type CapabilityFn func(actorID int64, orderType OrderType) bool

// Tx is the unit of work for one ProcessOrder call: order rows, stock and
// batch rows, and the audit trail all commit or roll back together.
type Tx interface {
	inventory.TxStore
	audit.Appender

	NextOrderNumber(ctx context.Context, t OrderType) (int64, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertOrderItem(ctx context.Context, item OrderItem) (int64, error)
	InsertAllocation(ctx context.Context, alloc BatchAllocation) (int64, error)
	SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
}

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	Get(ctx context.Context, id int64) (*Order, error)
}

// Service is the order processor: it validates a request, plans every
// stock and batch movement, then commits order, movements and audit trail
// as one atomic unit.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	ledger      *inventory.Ledger
	allocator   *inventory.Allocator
	recorder    *audit.Recorder
	idempotency *shared.IdempotencyStore
	capability  CapabilityFn
	validate    *validator.Validate
}

// NewService builds the order processor.
func NewService(repo RepositoryPort, cat CatalogPort, ledger *inventory.Ledger, allocator *inventory.Allocator, recorder *audit.Recorder, idem *shared.IdempotencyStore, capability CapabilityFn) *Service {
	return &Service{
		repo:        repo,
		catalog:     cat,
		ledger:      ledger,
		allocator:   allocator,
		recorder:    recorder,
		idempotency: idem,
		capability:  capability,
		validate:    validator.New(),
	}
}

type pairKey struct {
	productID   int64
	warehouseID int64
}

// ProcessOrder validates req, then creates the order, applies all stock
// and batch deltas and writes the audit trail in one transaction. Any
// failure, including an allocation shortfall found mid-plan, leaves no
// partial state behind.
func (s *Service) ProcessOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("orders: invalid request: %w", err)
	}
	orderType := OrderType(req.Type)
	if !orderType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrderType, req.Type)
	}
	if s.capability != nil && !s.capability(req.ActorID, orderType) {
		return nil, shared.ErrPermissionDenied
	}

	batchTracked := make(map[int64]bool, len(req.Lines))
	for _, line := range req.Lines {
		product, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("orders: verify product %d: %w", line.ProductID, err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %d", ErrInactiveProduct, line.ProductID)
		}
		batchTracked[product.ID] = product.BatchTracked

		warehouse, err := s.catalog.Warehouse(ctx, line.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("orders: verify warehouse %d: %w", line.WarehouseID, err)
		}
		if !warehouse.IsActive {
			return nil, fmt.Errorf("%w: warehouse %d", ErrInactiveWarehouse, line.WarehouseID)
		}
	}

	total := decimal.Zero
	items := make([]OrderItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		unitPrice := decimal.NewFromFloat(line.UnitPrice)
		subtotal := unitPrice.Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(subtotal)
		items = append(items, OrderItem{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			Subtotal:    subtotal,
		})
	}

	claimedKey := false
	if req.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "orders"); err != nil {
			return nil, err
		}
		claimedKey = true
	}

	order := &Order{
		Type:        orderType,
		Status:      OrderStatusPending,
		ActorID:     req.ActorID,
		CustomerID:  req.CustomerID,
		SupplierID:  req.SupplierID,
		TotalAmount: total,
		Notes:       req.Notes,
		OrderDate:   time.Now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return s.processInTx(ctx, tx, req, order, items, batchTracked)
	})
	if err != nil {
		if claimedKey {
			_ = s.idempotency.Release(ctx, req.IdempotencyKey)
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) processInTx(ctx context.Context, tx Tx, req CreateOrderRequest, order *Order, items []OrderItem, batchTracked map[int64]bool) error {
	seq, err := tx.NextOrderNumber(ctx, order.Type)
	if err != nil {
		return fmt.Errorf("orders: next order number: %w", err)
	}
	order.OrderNumber = FormatOrderNumber(order.Type, seq)

	// Aggregate deltas per (product, warehouse) so each stock row is
	// locked, mutated and audited once, in a deterministic order.
	sign := int64(1)
	if order.Type.Decrements() {
		sign = -1
	}
	net := make(map[pairKey]int64)
	var pairs []pairKey
	for _, item := range items {
		key := pairKey{item.ProductID, item.WarehouseID}
		if _, ok := net[key]; !ok {
			pairs = append(pairs, key)
		}
		net[key] += sign * item.Quantity
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].productID != pairs[j].productID {
			return pairs[i].productID < pairs[j].productID
		}
		return pairs[i].warehouseID < pairs[j].warehouseID
	})

	// Plan phase: lock rows, verify availability and resolve batch
	// consumption before writing anything.
	pairPlans := make(map[pairKey][]inventory.BatchConsumption)
	if order.Type.Decrements() {
		for _, key := range pairs {
			need := -net[key]
			level, err := tx.GetStockForUpdate(ctx, key.productID, key.warehouseID)
			if err != nil && !errors.Is(err, inventory.ErrStockNotFound) {
				return err
			}
			if level.Available() < need {
				return fmt.Errorf("%w: available %d, requested %d", inventory.ErrInsufficientStock, level.Available(), need)
			}
			if batchTracked[key.productID] {
				plan, err := s.allocator.Plan(ctx, tx, key.productID, key.warehouseID, need)
				if err != nil {
					return err
				}
				pairPlans[key] = plan
			}
		}
	}

	orderID, err := tx.InsertOrder(ctx, *order)
	if err != nil {
		return fmt.Errorf("orders: insert order: %w", err)
	}
	order.ID = orderID
	for i := range items {
		items[i].OrderID = orderID
		itemID, err := tx.InsertOrderItem(ctx, items[i])
		if err != nil {
			return fmt.Errorf("orders: insert order item: %w", err)
		}
		items[i].ID = itemID
	}

	reason := fmt.Sprintf("%s order %s", order.Type, order.OrderNumber)

	for _, key := range pairs {
		before, after, err := s.ledger.ApplyDelta(ctx, tx, key.productID, key.warehouseID, net[key])
		if err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, tx, order.ActorID, audit.ActionStockAdjust, audit.EntityStockLevel, after.ID,
			quantitySnapshot(before.Quantity), quantitySnapshot(after.Quantity), reason); err != nil {
			return err
		}
	}

	for _, key := range pairs {
		plan := pairPlans[key]
		if len(plan) == 0 {
			continue
		}
		if err := s.allocator.Consume(ctx, tx, plan); err != nil {
			return err
		}
		if err := s.allocateToItems(ctx, tx, items, key, plan); err != nil {
			return err
		}
		for _, step := range plan {
			if _, err := s.recorder.Record(ctx, tx, order.ActorID, audit.ActionBatchConsume, audit.EntityBatch, step.BatchID,
				quantitySnapshot(step.Before), quantitySnapshot(step.Remaining), fmt.Sprintf("%s - batch %s", reason, step.BatchNumber)); err != nil {
				return err
			}
		}
	}

	order.Status = OrderStatusCompleted
	if err := tx.SetOrderStatus(ctx, orderID, OrderStatusCompleted); err != nil {
		return fmt.Errorf("orders: set status: %w", err)
	}
	if _, err := s.recorder.Record(ctx, tx, order.ActorID, audit.ActionOrderCreate, audit.EntityOrder, orderID,
		nil, orderSnapshot(order), ""); err != nil {
		return err
	}
	order.Items = items
	return nil
}

// allocateToItems splits a pair level consumption plan back onto the
// individual order items, in line order. The sum of allocations per item
// equals the item quantity exactly.
func (s *Service) allocateToItems(ctx context.Context, tx Tx, items []OrderItem, key pairKey, plan []inventory.BatchConsumption) error {
	stepIdx := 0
	stepLeft := plan[0].Quantity
	for i := range items {
		if items[i].ProductID != key.productID || items[i].WarehouseID != key.warehouseID {
			continue
		}
		need := items[i].Quantity
		for need > 0 {
			for stepLeft == 0 {
				stepIdx++
				if stepIdx >= len(plan) {
					return fmt.Errorf("%w: allocation plan exhausted", inventory.ErrInsufficientBatchStock)
				}
				stepLeft = plan[stepIdx].Quantity
			}
			take := need
			if take > stepLeft {
				take = stepLeft
			}
			alloc := BatchAllocation{
				OrderItemID: items[i].ID,
				BatchID:     plan[stepIdx].BatchID,
				Quantity:    take,
			}
			id, err := tx.InsertAllocation(ctx, alloc)
			if err != nil {
				return fmt.Errorf("orders: insert allocation: %w", err)
			}
			alloc.ID = id
			items[i].Allocations = append(items[i].Allocations, alloc)
			need -= take
			stepLeft -= take
		}
	}
	return nil
}

// Get fetches one committed order with its items and allocations.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	if id == 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func quantitySnapshot(qty int64) map[string]int64 {
	return map[string]int64{"quantity": qty}
}

func orderSnapshot(o *Order) map[string]any {
	return map[string]any{
		"order_number": o.OrderNumber,
		"order_type":   string(o.Type),
		"status":       string(OrderStatusCompleted),
		"total_amount": o.TotalAmount.String(),
	}
}
