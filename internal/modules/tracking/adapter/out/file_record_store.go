package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lingobot/internal/modules/tracking/domain"
	trackingout "lingobot/internal/modules/tracking/port/out"
	apperrors "lingobot/internal/platform/errors"
)

const timeLayout = time.RFC3339

// FileRecordStore persists every user record in one JSON file keyed by user
// identity. Writes go through a temp file in the same directory followed by
// a rename, so a crash mid-write never corrupts previously committed data.
type FileRecordStore struct {
	path string
}

func NewFileRecordStore(path string) trackingout.RecordStore {
	return &FileRecordStore{path: path}
}

type storedEntry struct {
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at"`
	DurationSeconds float64 `json:"duration_seconds"`
	Label           string  `json:"label"`
}

type storedRecord struct {
	TargetHours    float64       `json:"target_hours"`
	Sessions       []storedEntry `json:"sessions"`
	TotalSeconds   float64       `json:"total_seconds"`
	FirstSessionAt *string       `json:"first_session_at"`
	LastUpdatedAt  *string       `json:"last_updated_at"`
	CompletedAt    *string       `json:"completed_at"`
}

func (s *FileRecordStore) Load(ctx context.Context, userID string) (domain.Record, error) {
	all, err := s.loadAll()
	if err != nil {
		return domain.Record{}, err
	}
	stored, ok := all[userID]
	if !ok {
		return domain.Record{}, apperrors.ErrUserNotFound
	}
	return decodeRecord(userID, stored)
}

func (s *FileRecordStore) LoadAll(ctx context.Context) ([]domain.Record, error) {
	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(all))
	for userID := range all {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	records := make([]domain.Record, 0, len(all))
	for _, userID := range userIDs {
		record, err := decodeRecord(userID, all[userID])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *FileRecordStore) Save(ctx context.Context, record domain.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid record: %w", err)
	}
	all, err := s.loadAll()
	if err != nil {
		return err
	}
	all[record.UserID] = encodeRecord(record)

	payload, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking data: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp data file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write tracking data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit tracking data: %w", err)
	}
	return nil
}

func (s *FileRecordStore) loadAll() (map[string]storedRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]storedRecord{}, nil
		}
		return nil, fmt.Errorf("read tracking data: %w", err)
	}
	all := map[string]storedRecord{}
	if err := json.Unmarshal(raw, &all); err != nil {
		// A malformed store is an operator problem; silently starting over
		// would discard committed history.
		return nil, fmt.Errorf("decode tracking data %s: %w", s.path, err)
	}
	return all, nil
}

func encodeRecord(record domain.Record) storedRecord {
	sessions := make([]storedEntry, 0, len(record.Sessions))
	for _, entry := range record.Sessions {
		sessions = append(sessions, storedEntry{
			StartedAt:       entry.StartedAt.Format(timeLayout),
			EndedAt:         entry.EndedAt.Format(timeLayout),
			DurationSeconds: entry.DurationSeconds,
			Label:           entry.Label,
		})
	}
	return storedRecord{
		TargetHours:    record.TargetHours,
		Sessions:       sessions,
		TotalSeconds:   record.TotalSeconds,
		FirstSessionAt: encodeTime(record.FirstSessionAt),
		LastUpdatedAt:  encodeTime(record.LastUpdatedAt),
		CompletedAt:    encodeTimePtr(record.CompletedAt),
	}
}

func decodeRecord(userID string, stored storedRecord) (domain.Record, error) {
	record := domain.Record{
		UserID:       userID,
		TargetHours:  stored.TargetHours,
		Sessions:     make([]domain.Entry, 0, len(stored.Sessions)),
		TotalSeconds: stored.TotalSeconds,
	}
	for i, entry := range stored.Sessions {
		startedAt, err := decodeTime(entry.StartedAt)
		if err != nil {
			return domain.Record{}, fmt.Errorf("user %s session %d: %w", userID, i, err)
		}
		endedAt, err := decodeTime(entry.EndedAt)
		if err != nil {
			return domain.Record{}, fmt.Errorf("user %s session %d: %w", userID, i, err)
		}
		record.Sessions = append(record.Sessions, domain.Entry{
			StartedAt:       startedAt,
			EndedAt:         endedAt,
			DurationSeconds: entry.DurationSeconds,
			Label:           entry.Label,
		})
	}
	if stored.FirstSessionAt != nil {
		t, err := decodeTime(*stored.FirstSessionAt)
		if err != nil {
			return domain.Record{}, fmt.Errorf("user %s first_session_at: %w", userID, err)
		}
		record.FirstSessionAt = t
	}
	if stored.LastUpdatedAt != nil {
		t, err := decodeTime(*stored.LastUpdatedAt)
		if err != nil {
			return domain.Record{}, fmt.Errorf("user %s last_updated_at: %w", userID, err)
		}
		record.LastUpdatedAt = t
	}
	if stored.CompletedAt != nil {
		t, err := decodeTime(*stored.CompletedAt)
		if err != nil {
			return domain.Record{}, fmt.Errorf("user %s completed_at: %w", userID, err)
		}
		record.CompletedAt = &t
	}
	return record, nil
}

func encodeTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := t.Format(timeLayout)
	return &formatted
}

func encodeTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
