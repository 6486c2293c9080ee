package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lingobot/internal/modules/tracking/domain"
	trackingout "lingobot/internal/modules/tracking/port/out"

	_ "modernc.org/sqlite"
)

// SQLiteStatusProjector maintains a queryable read model of every record.
// The JSON record store stays the source of truth; this index exists so the
// all-users status surfaces can query and sort without parsing the full
// session history, and it can be rebuilt with reindex at any time.
type SQLiteStatusProjector struct {
	db *sql.DB
}

func NewSQLiteStatusProjector(dbPath string) (trackingout.StatusProjector, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open status index: %w", err)
	}
	projector := &SQLiteStatusProjector{db: db}
	if err := projector.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return projector, nil
}

func (s *SQLiteStatusProjector) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS user_status (
  user_id TEXT PRIMARY KEY,
  target_hours REAL NOT NULL,
  total_seconds REAL NOT NULL,
  session_count INTEGER NOT NULL,
  completed INTEGER NOT NULL,
  first_session_at TEXT,
  last_updated_at TEXT,
  completed_at TEXT
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create user_status table: %w", err)
	}
	return nil
}

func (s *SQLiteStatusProjector) Upsert(ctx context.Context, record domain.Record) error {
	const stmt = `
INSERT INTO user_status (user_id, target_hours, total_seconds, session_count, completed, first_session_at, last_updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  target_hours=excluded.target_hours,
  total_seconds=excluded.total_seconds,
  session_count=excluded.session_count,
  completed=excluded.completed,
  first_session_at=excluded.first_session_at,
  last_updated_at=excluded.last_updated_at,
  completed_at=excluded.completed_at;
`
	_, err := s.db.ExecContext(ctx, stmt,
		record.UserID,
		record.TargetHours,
		record.TotalSeconds,
		len(record.Sessions),
		boolToInt(record.Completed()),
		timeColumn(record.FirstSessionAt),
		timeColumn(record.LastUpdatedAt),
		timePtrColumn(record.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert user status: %w", err)
	}
	return nil
}

func (s *SQLiteStatusProjector) List(ctx context.Context) ([]domain.Status, error) {
	const query = `
SELECT user_id, target_hours, total_seconds, session_count, completed, first_session_at, last_updated_at, completed_at
FROM user_status
ORDER BY total_seconds DESC, user_id ASC;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var statuses []domain.Status
	for rows.Next() {
		var (
			status                           domain.Status
			completed                        int
			firstAt, lastAt, completedAtText sql.NullString
		)
		if err := rows.Scan(
			&status.UserID,
			&status.TargetHours,
			&status.TotalSeconds,
			&status.SessionCount,
			&completed,
			&firstAt,
			&lastAt,
			&completedAtText,
		); err != nil {
			return nil, fmt.Errorf("scan user status: %w", err)
		}
		status.Completed = completed != 0
		status.TotalHours = status.TotalSeconds / 3600
		if status.TargetHours > 0 {
			pct := status.TotalHours / status.TargetHours * 100
			if pct > 100 {
				pct = 100
			}
			status.PercentComplete = pct
		}
		if t, ok := parseColumn(firstAt); ok {
			status.FirstSessionAt = t
		}
		if t, ok := parseColumn(lastAt); ok {
			status.LastUpdatedAt = t
		}
		if t, ok := parseColumn(completedAtText); ok {
			status.CompletedAt = &t
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user status: %w", err)
	}
	return statuses, nil
}

func (s *SQLiteStatusProjector) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_status`); err != nil {
		return fmt.Errorf("reset user status: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeColumn(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}

func timePtrColumn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeColumn(*t)
}

func parseColumn(column sql.NullString) (time.Time, bool) {
	if !column.Valid || column.String == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(timeLayout, column.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
