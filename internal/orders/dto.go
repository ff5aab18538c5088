package orders

// CreateOrderRequest is the inbound payload for ProcessOrder.
type CreateOrderRequest struct {
	Type           string             `json:"order_type" validate:"required"`
	ActorID        int64              `json:"actor_id" validate:"required,gt=0"`
	CustomerID     *int64             `json:"customer_id,omitempty"`
	SupplierID     *int64             `json:"supplier_id,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
	Lines          []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// OrderLineRequest is one requested line.
type OrderLineRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64   `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}
