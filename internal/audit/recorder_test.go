package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryAppender struct {
	entries []Entry
	failing bool
}

func (a *memoryAppender) AppendAuditEntry(ctx context.Context, entry Entry) (int64, error) {
	if a.failing {
		return 0, errors.New("storage unavailable")
	}
	a.entries = append(a.entries, entry)
	return int64(len(a.entries)), nil
}

func TestRecordSnapshotsAreCopies(t *testing.T) {
	appender := &memoryAppender{}
	rec := NewRecorder()

	state := map[string]any{"quantity": 100}
	entry, err := rec.Record(context.Background(), appender, 7, ActionStockAdjust, EntityStockLevel, 3, state, map[string]any{"quantity": 70}, "Sale order SO-00001")
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.ID)

	// Mutating the source after recording must not change the snapshot.
	state["quantity"] = 0

	var old map[string]int64
	require.NoError(t, json.Unmarshal(appender.entries[0].OldValues, &old))
	require.Equal(t, int64(100), old["quantity"])
	var newVals map[string]int64
	require.NoError(t, json.Unmarshal(appender.entries[0].NewValues, &newVals))
	require.Equal(t, int64(70), newVals["quantity"])
}

func TestRecordRequiresIdentity(t *testing.T) {
	rec := NewRecorder()
	_, err := rec.Record(context.Background(), &memoryAppender{}, 1, "", EntityOrder, 1, nil, nil, "")
	require.ErrorIs(t, err, ErrIncomplete)
	_, err = rec.Record(context.Background(), &memoryAppender{}, 1, ActionOrderCreate, EntityOrder, 0, nil, nil, "")
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestRecordPropagatesStorageFailure(t *testing.T) {
	rec := NewRecorder()
	_, err := rec.Record(context.Background(), &memoryAppender{failing: true}, 1, ActionOrderCreate, EntityOrder, 9, nil, map[string]any{"status": "Completed"}, "")
	require.Error(t, err)
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryTimeline{}
	for i := 0; i < 25; i++ {
		repo.entries = append(repo.entries, Entry{ID: int64(i + 1), ActorID: 1, Action: ActionStockAdjust, EntityType: EntityStockLevel, EntityID: 1, At: time.Now().UTC()})
	}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, res.Entries, 20)
	require.True(t, res.Paging.HasNext)
	require.Equal(t, 2, res.Paging.NextPage)

	res, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, res.Entries, 5)
	require.False(t, res.Paging.HasNext)
	require.Equal(t, 1, res.Paging.PrevPage)
}

type memoryTimeline struct {
	entries []Entry
}

func (m *memoryTimeline) Timeline(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	out := make([]Entry, end-offset)
	copy(out, m.entries[offset:end])
	return out, nil
}
