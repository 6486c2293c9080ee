package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lingobot/internal/modules/tracking/adapter/out"
	"lingobot/internal/modules/tracking/domain"
	apperrors "lingobot/internal/platform/errors"
)

func sampleRecord(userID string) domain.Record {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	record := domain.NewRecord(userID, 35, base)
	record.Append(domain.Entry{
		ID:              "s-1",
		StartedAt:       base,
		EndedAt:         base.Add(time.Hour),
		DurationSeconds: 3600,
		Label:           "lesson:hollywood",
	}, base.Add(time.Hour))
	return record
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "time_tracking.json")
	store := out.NewFileRecordStore(path)

	record := sampleRecord("user@example.com")
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.TargetHours != 35 || loaded.TotalSeconds != 3600 || len(loaded.Sessions) != 1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Sessions[0].Label != "lesson:hollywood" {
		t.Fatalf("label lost: %+v", loaded.Sessions[0])
	}
	if loaded.CompletedAt != nil {
		t.Fatalf("completed_at must stay null")
	}
	if err := loaded.Validate(); err != nil {
		t.Fatalf("loaded record invalid: %v", err)
	}
}

func TestLoadMissingUserAndMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "time_tracking.json")
	store := out.NewFileRecordStore(path)

	if _, err := store.Load(context.Background(), "nobody@example.com"); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("missing file must yield ErrUserNotFound, got %v", err)
	}

	if err := store.Save(context.Background(), sampleRecord("user@example.com")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(context.Background(), "nobody@example.com"); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("missing user must yield ErrUserNotFound, got %v", err)
	}
}

func TestSaveIsIdempotentAndKeepsOtherUsers(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "time_tracking.json")
	store := out.NewFileRecordStore(path)

	first := sampleRecord("first@example.com")
	second := sampleRecord("second@example.com")
	for _, record := range []domain.Record{first, second, first} {
		if err := store.Save(context.Background(), record); err != nil {
			t.Fatalf("save %s: %v", record.UserID, err)
		}
	}

	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].UserID != "first@example.com" || all[1].UserID != "second@example.com" {
		t.Fatalf("load all must be key-sorted: %s, %s", all[0].UserID, all[1].UserID)
	}
	if len(all[0].Sessions) != 1 {
		t.Fatalf("re-saving the same record must not duplicate sessions")
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := out.NewFileRecordStore(filepath.Join(dir, "time_tracking.json"))
	if err := store.Save(context.Background(), sampleRecord("user@example.com")); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the data file, got %d entries", len(entries))
	}
}

func TestCorruptFileFailsLoudly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "time_tracking.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := out.NewFileRecordStore(path)
	if _, err := store.Load(context.Background(), "user@example.com"); err == nil {
		t.Fatalf("corrupt store must fail, not silently reset")
	}
	if err := store.Save(context.Background(), sampleRecord("user@example.com")); err == nil {
		t.Fatalf("saving over a corrupt store must fail rather than discard history")
	}
}

func TestPersistedLayoutMatchesWireFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "time_tracking.json")
	store := out.NewFileRecordStore(path)
	record := sampleRecord("user@example.com")
	completed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	record.CompletedAt = &completed
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		`"user@example.com"`,
		`"target_hours": 35`,
		`"duration_seconds": 3600`,
		`"started_at": "2026-03-02T09:00:00Z"`,
		`"completed_at": "2026-03-02T10:00:00Z"`,
		`"label": "lesson:hollywood"`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("persisted layout missing %s:\n%s", want, text)
		}
	}
}
