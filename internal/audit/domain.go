package audit

import (
	"encoding/json"
	"errors"
	"time"
)

// Actions recorded by the transaction engine.
const (
	ActionOrderCreate  = "ORDER_CREATE"
	ActionStockAdjust  = "STOCK_ADJUST"
	ActionBatchConsume = "BATCH_CONSUME"
	ActionBatchCreate  = "BATCH_CREATE"
)

// Entity types referenced by audit entries.
const (
	EntityOrder      = "Order"
	EntityStockLevel = "StockLevel"
	EntityBatch      = "Batch"
)

// Entry is one immutable item of the audit trail. OldValues and NewValues
// are snapshots marshalled at record time, so later mutation of the source
// entity cannot alter a past entry.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	At         time.Time       `json:"at"`
}

// ErrIncomplete indicates a record call missing required fields.
var ErrIncomplete = errors.New("audit: action, entity type and entity id required")

// TimelineFilters narrows the audit timeline listing.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	ActorID    int64
	EntityType string
	EntityID   int64
	Action     string
	Page       int
	PageSize   int
}
