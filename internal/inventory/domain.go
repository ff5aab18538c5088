package inventory

import (
	"errors"
	"time"
)

// StockLevel holds the current quantity per (product, warehouse). Exactly
// one row exists per pair; the ledger creates it on first use.
type StockLevel struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	WarehouseID      int64     `json:"warehouse_id"`
	Quantity         int64     `json:"quantity"`
	ReservedQuantity int64     `json:"reserved_quantity"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available is the quantity not held by a reservation.
func (s StockLevel) Available() int64 {
	return s.Quantity - s.ReservedQuantity
}

// Batch is a dated sub-quantity of a product's stock at a warehouse.
type Batch struct {
	ID           int64      `json:"id"`
	ProductID    int64      `json:"product_id"`
	WarehouseID  int64      `json:"warehouse_id"`
	BatchNumber  string     `json:"batch_number"`
	Quantity     int64      `json:"quantity"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	ReceivedDate time.Time  `json:"received_date"`
}

// BatchConsumption is one step of an allocation plan: draw Quantity units
// from the batch, leaving Remaining.
type BatchConsumption struct {
	BatchID     int64  `json:"batch_id"`
	BatchNumber string `json:"batch_number"`
	Quantity    int64  `json:"quantity"`
	Before      int64  `json:"-"`
	Remaining   int64  `json:"-"`
}

// LowStockItem is one row of the low-stock listing consumed by the
// scheduled checker.
type LowStockItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	WarehouseID int64  `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
}

var (
	// ErrInsufficientStock is returned when a delta would drive a stock
	// level below zero.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInsufficientBatchStock is returned when batches at a location
	// cannot cover a requested allocation.
	ErrInsufficientBatchStock = errors.New("inventory: insufficient batch stock")
	// ErrInvalidQuantity indicates a negative or otherwise malformed quantity.
	ErrInvalidQuantity = errors.New("inventory: invalid quantity")
	// ErrStockNotFound indicates a missing stock level row.
	ErrStockNotFound = errors.New("inventory: stock level not found")
	// ErrBatchNotFound indicates a missing batch row.
	ErrBatchNotFound = errors.New("inventory: batch not found")
)
