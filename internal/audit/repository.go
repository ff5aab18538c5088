package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxAppender implements Appender on top of an open pgx transaction.
type TxAppender struct {
	tx pgx.Tx
}

// NewTxAppender wraps tx so the Recorder can append inside it.
func NewTxAppender(tx pgx.Tx) *TxAppender {
	return &TxAppender{tx: tx}
}

// AppendAuditEntry inserts the entry and returns its id.
func (a *TxAppender) AppendAuditEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := a.tx.QueryRow(ctx, `INSERT INTO audit_entries (actor_id, action, entity_type, entity_id, old_values, new_values, reason, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.OldValues, entry.NewValues, nullString(entry.Reason), entry.At).Scan(&id)
	return id, err
}

// Repository reads the committed audit trail.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Timeline lists entries matching filters, oldest first, limited to
// limit rows starting at offset.
func (r *Repository) Timeline(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	if r == nil {
		return nil, errors.New("audit repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, actor_id, action, entity_type, entity_id, old_values, new_values, COALESCE(reason, ''), occurred_at
FROM audit_entries
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::bigint = 0 OR actor_id = $3)
  AND ($4::text = '' OR entity_type = $4)
  AND ($5::bigint = 0 OR entity_id = $5)
  AND ($6::text = '' OR action = $6)
ORDER BY occurred_at ASC, id ASC
OFFSET $7 LIMIT $8`,
		nullTime(filters.From), nullTime(filters.To), filters.ActorID, filters.EntityType, filters.EntityID, filters.Action, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.OldValues, &e.NewValues, &e.Reason, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
