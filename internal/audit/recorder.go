package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Appender stores one entry inside the caller's open transaction. The
// concrete implementation decides durability; a failed append must fail
// the enclosing transaction, since an unaudited mutation counts as lost.
type Appender interface {
	AppendAuditEntry(ctx context.Context, entry Entry) (int64, error)
}

// Recorder builds and appends audit entries. It is the only component
// allowed to create them.
type Recorder struct {
	now func() time.Time
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Record marshals structural snapshots of old and new, stamps the entry and
// appends it through tx. The returned entry carries the assigned id.
func (r *Recorder) Record(ctx context.Context, tx Appender, actorID int64, action, entityType string, entityID int64, old, new any, reason string) (Entry, error) {
	if action == "" || entityType == "" || entityID == 0 {
		return Entry{}, ErrIncomplete
	}
	oldJSON, err := snapshot(old)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: snapshot old values: %w", err)
	}
	newJSON, err := snapshot(new)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: snapshot new values: %w", err)
	}
	entry := Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  oldJSON,
		NewValues:  newJSON,
		Reason:     reason,
		At:         r.now().UTC(),
	}
	id, err := tx.AppendAuditEntry(ctx, entry)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: append entry: %w", err)
	}
	entry.ID = id
	return entry, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
