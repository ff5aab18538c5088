package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/inventory"
	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	inventory.Tx
	tx pgx.Tx
}

// WithTx runs fn inside one repeatable-read transaction spanning order,
// stock, batch and audit writes. Serialization and deadlock failures map
// to shared.ErrConflict so the caller can retry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil {
		return errors.New("orders repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Tx: inventory.NewTxStore(tx), tx: tx})
	})
	if err != nil && db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", shared.ErrConflict, err)
	}
	return err
}

func (r *txRepo) NextOrderNumber(ctx context.Context, t OrderType) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_sequences (order_type, last_value) VALUES ($1, 1)
ON CONFLICT (order_type) DO UPDATE SET last_value = order_sequences.last_value + 1
RETURNING last_value`, string(t)).Scan(&seq)
	return seq, err
}

func (r *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (order_number, order_type, status, actor_id, customer_id, supplier_id, total_amount, notes, order_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`,
		o.OrderNumber, string(o.Type), string(o.Status), o.ActorID, o.CustomerID, o.SupplierID, o.TotalAmount, nullString(o.Notes), o.OrderDate).Scan(&id)
	return id, err
}

func (r *txRepo) InsertOrderItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, warehouse_id, quantity, unit_price, subtotal)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		item.OrderID, item.ProductID, item.WarehouseID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&id)
	return id, err
}

func (r *txRepo) InsertAllocation(ctx context.Context, alloc BatchAllocation) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_item_batches (order_item_id, batch_id, quantity)
VALUES ($1,$2,$3) RETURNING id`,
		alloc.OrderItemID, alloc.BatchID, alloc.Quantity).Scan(&id)
	return id, err
}

func (r *txRepo) SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1 AND status=$3`,
		orderID, string(status), string(OrderStatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: order %d not pending", orderID)
	}
	return nil
}

// Get fetches one order with items and batch allocations.
func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	if r == nil {
		return nil, errors.New("orders repository not initialised")
	}
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT id, order_number, order_type, status, actor_id, customer_id, supplier_id, total_amount, COALESCE(notes, ''), order_date
FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.Type, &o.Status, &o.ActorID, &o.CustomerID, &o.SupplierID, &o.TotalAmount, &o.Notes, &o.OrderDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, warehouse_id, quantity, unit_price, subtotal
FROM order_items WHERE order_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	itemIndex := make(map[int64]int)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.WarehouseID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		itemIndex[item.ID] = len(o.Items)
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	allocRows, err := r.pool.Query(ctx, `SELECT b.id, b.order_item_id, b.batch_id, b.quantity
FROM order_item_batches b
JOIN order_items i ON i.id = b.order_item_id
WHERE i.order_id=$1 ORDER BY b.id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer allocRows.Close()
	for allocRows.Next() {
		var alloc BatchAllocation
		if err := allocRows.Scan(&alloc.ID, &alloc.OrderItemID, &alloc.BatchID, &alloc.Quantity); err != nil {
			return nil, err
		}
		if idx, ok := itemIndex[alloc.OrderItemID]; ok {
			o.Items[idx].Allocations = append(o.Items[idx].Allocations, alloc)
		}
	}
	if err := allocRows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
