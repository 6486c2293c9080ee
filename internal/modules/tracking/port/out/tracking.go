package out

import (
	"context"
	"time"

	"lingobot/internal/modules/tracking/domain"
)

// RecordStore is the single source of truth for per-user tracking records.
// Save must be atomic with respect to process crashes and idempotent; the
// deployment assumption is at most one writing process per user, last writer
// wins otherwise.
type RecordStore interface {
	Load(ctx context.Context, userID string) (domain.Record, error)
	Save(ctx context.Context, record domain.Record) error
	LoadAll(ctx context.Context) ([]domain.Record, error)
}

// ActiveStore holds the open session per user for this process only. An open
// session that never reaches Close is lost on crash; there is no write-ahead
// log for in-progress intervals.
type ActiveStore interface {
	Open(ctx context.Context, active domain.Active) error
	Get(ctx context.Context, userID string) (domain.Active, error)
	Close(ctx context.Context, userID string) error
}

// StatusProjector maintains a queryable read model of record status. It is
// derived state: failures must never block a record save, and Reindex can
// rebuild it from the record store at any time.
type StatusProjector interface {
	Upsert(ctx context.Context, record domain.Record) error
	List(ctx context.Context) ([]domain.Status, error)
	Reset(ctx context.Context) error
}

// ReportSink writes one report artifact per invocation to a unique path.
type ReportSink interface {
	Write(ctx context.Context, record domain.Record, now time.Time) (string, error)
}
