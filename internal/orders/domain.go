package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType enumerates supported order kinds.
type OrderType string

const (
	// OrderTypeSale decreases stock at the selling warehouse.
	OrderTypeSale OrderType = "Sale"
	// OrderTypePurchase increases stock on goods receipt.
	OrderTypePurchase OrderType = "Purchase"
	// OrderTypeReturn is a customer return; stock comes back in.
	OrderTypeReturn OrderType = "Return"
	// OrderTypeCustomerReturn is the explicit form of OrderTypeReturn.
	OrderTypeCustomerReturn OrderType = "CustomerReturn"
	// OrderTypeSupplierReturn sends goods back to a supplier, decreasing stock.
	OrderTypeSupplierReturn OrderType = "SupplierReturn"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeSale, OrderTypePurchase, OrderTypeReturn, OrderTypeCustomerReturn, OrderTypeSupplierReturn:
		return true
	}
	return false
}

// Decrements reports whether orders of this type draw stock down.
func (t OrderType) Decrements() bool {
	return t == OrderTypeSale || t == OrderTypeSupplierReturn
}

// Prefix returns the display number prefix for the type.
func (t OrderType) Prefix() string {
	switch t {
	case OrderTypeSale:
		return "SO"
	case OrderTypePurchase:
		return "PO"
	case OrderTypeReturn, OrderTypeCustomerReturn:
		return "RT"
	case OrderTypeSupplierReturn:
		return "SR"
	}
	return "ORD"
}

// OrderStatus tracks the order lifecycle. An order leaves Pending at most
// once and is never mutated after reaching a terminal state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order is the committed result of ProcessOrder.
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	Type        OrderType       `json:"order_type"`
	Status      OrderStatus     `json:"status"`
	ActorID     int64           `json:"actor_id"`
	CustomerID  *int64          `json:"customer_id,omitempty"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	OrderDate   time.Time       `json:"order_date"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one line of an order. Immutable once the order completes.
type OrderItem struct {
	ID          int64             `json:"id"`
	OrderID     int64             `json:"order_id"`
	ProductID   int64             `json:"product_id"`
	WarehouseID int64             `json:"warehouse_id"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Allocations []BatchAllocation `json:"allocations,omitempty"`
}

// BatchAllocation records how many units an order item drew from a batch.
type BatchAllocation struct {
	ID          int64 `json:"id"`
	OrderItemID int64 `json:"order_item_id"`
	BatchID     int64 `json:"batch_id"`
	Quantity    int64 `json:"quantity"`
}

var (
	// ErrUnknownOrderType indicates an order type outside the known set.
	ErrUnknownOrderType = errors.New("orders: unknown order type")
	// ErrEmptyOrder indicates a request without lines.
	ErrEmptyOrder = errors.New("orders: at least one line required")
	// ErrInactiveProduct indicates a line referencing an inactive product.
	ErrInactiveProduct = errors.New("orders: product is inactive")
	// ErrInactiveWarehouse indicates a line referencing an inactive warehouse.
	ErrInactiveWarehouse = errors.New("orders: warehouse is inactive")
)
