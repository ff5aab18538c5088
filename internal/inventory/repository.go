package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/audit"
	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/shared"
)

// Tx bundles the row operations available inside one unit of work: stock
// and batch rows plus the audit trail that must commit with them.
type Tx interface {
	TxStore
	audit.Appender
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txStore struct {
	tx pgx.Tx
	*audit.TxAppender
}

func newTxStore(tx pgx.Tx) *txStore {
	return &txStore{tx: tx, TxAppender: audit.NewTxAppender(tx)}
}

// NewTxStore exposes the stock and batch row operations over an already
// open transaction, for modules that span a wider unit of work.
func NewTxStore(tx pgx.Tx) Tx {
	return newTxStore(tx)
}

// WithTx executes fn inside a repeatable-read transaction. Serialization
// and deadlock failures surface as shared.ErrConflict so callers can retry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newTxStore(tx))
	})
	if err != nil && db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", shared.ErrConflict, err)
	}
	return err
}

func (s *txStore) GetStockForUpdate(ctx context.Context, productID, warehouseID int64) (StockLevel, error) {
	var level StockLevel
	err := s.tx.QueryRow(ctx, `SELECT id, product_id, warehouse_id, quantity, reserved_quantity, updated_at
FROM stock_levels WHERE product_id=$1 AND warehouse_id=$2 FOR UPDATE`, productID, warehouseID).
		Scan(&level.ID, &level.ProductID, &level.WarehouseID, &level.Quantity, &level.ReservedQuantity, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockLevel{}, ErrStockNotFound
		}
		return StockLevel{}, err
	}
	return level, nil
}

func (s *txStore) CreateStockLevel(ctx context.Context, productID, warehouseID int64) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_levels (product_id, warehouse_id, quantity, reserved_quantity, updated_at)
VALUES ($1,$2,0,0,NOW())
ON CONFLICT (product_id, warehouse_id) DO NOTHING`, productID, warehouseID)
	return err
}

func (s *txStore) UpdateStockQuantity(ctx context.Context, level StockLevel) error {
	tag, err := s.tx.Exec(ctx, `UPDATE stock_levels SET quantity=$3, updated_at=NOW()
WHERE product_id=$1 AND warehouse_id=$2`, level.ProductID, level.WarehouseID, level.Quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStockNotFound
	}
	return nil
}

func (s *txStore) ListBatchesForUpdate(ctx context.Context, productID, warehouseID int64) ([]Batch, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, product_id, warehouse_id, batch_number, quantity, expiry_date, received_date
FROM batches
WHERE product_id=$1 AND warehouse_id=$2 AND quantity > 0
ORDER BY expiry_date ASC NULLS LAST, received_date ASC, id ASC
FOR UPDATE`, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.WarehouseID, &b.BatchNumber, &b.Quantity, &b.ExpiryDate, &b.ReceivedDate); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *txStore) UpdateBatchQuantity(ctx context.Context, batchID, quantity int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE batches SET quantity=$2 WHERE id=$1`, batchID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (s *txStore) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO batches (product_id, warehouse_id, batch_number, quantity, expiry_date, received_date)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		batch.ProductID, batch.WarehouseID, batch.BatchNumber, batch.Quantity, batch.ExpiryDate, batch.ReceivedDate).Scan(&id)
	return id, err
}

// StockLevels lists committed stock rows for a product across warehouses.
func (r *Repository) StockLevels(ctx context.Context, productID int64) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, warehouse_id, quantity, reserved_quantity, updated_at
FROM stock_levels WHERE product_id=$1 ORDER BY warehouse_id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStockLevels(rows)
}

// WarehouseStock returns the committed quantity for one pair, zero when no
// row exists yet.
func (r *Repository) WarehouseStock(ctx context.Context, productID, warehouseID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM stock_levels WHERE product_id=$1 AND warehouse_id=$2`, productID, warehouseID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// LowStock lists rows under threshold for the scheduled checker.
func (r *Repository) LowStock(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.product_id, p.name, p.sku, s.warehouse_id, s.quantity
FROM stock_levels s
JOIN products p ON p.id = s.product_id
WHERE s.quantity < $1
ORDER BY s.quantity ASC, s.product_id ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LowStockItem{}
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.SKU, &item.WarehouseID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Snapshot reads every stock level in one repeatable-read transaction so
// the backup job sees a consistent picture.
func (r *Repository) Snapshot(ctx context.Context) ([]StockLevel, error) {
	var levels []StockLevel
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, product_id, warehouse_id, quantity, reserved_quantity, updated_at
FROM stock_levels ORDER BY product_id ASC, warehouse_id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		levels, err = scanStockLevels(rows)
		return err
	})
	return levels, err
}

func scanStockLevels(rows pgx.Rows) ([]StockLevel, error) {
	levels := []StockLevel{}
	for rows.Next() {
		var level StockLevel
		if err := rows.Scan(&level.ID, &level.ProductID, &level.WarehouseID, &level.Quantity, &level.ReservedQuantity, &level.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return levels, nil
}
