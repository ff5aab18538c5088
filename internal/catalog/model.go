package catalog

import "time"

// Product is read-only master data consumed by the order pipeline.
type Product struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	CategoryCode string    `json:"category_code"`
	Price        float64   `json:"price"`
	IsActive     bool      `json:"is_active"`
	BatchTracked bool      `json:"batch_tracked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Warehouse is read-only master data consumed by the order pipeline.
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
