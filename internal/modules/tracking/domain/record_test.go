package domain_test

import (
	"testing"
	"time"

	"lingobot/internal/modules/tracking/domain"
)

func entryOf(start time.Time, seconds float64, label string) domain.Entry {
	return domain.Entry{
		ID:              "e-" + label,
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(seconds) * time.Second),
		DurationSeconds: seconds,
		Label:           label,
	}
}

func TestAppendKeepsTotalEqualToSessionSum(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := domain.NewRecord("User@Example.COM ", 35, now)
	if record.UserID != "user@example.com" {
		t.Fatalf("user id not normalized: %q", record.UserID)
	}

	record.Append(entryOf(now, 3600, "lesson"), now.Add(time.Hour))
	record.Append(entryOf(now.Add(2*time.Hour), 1800, "stories"), now.Add(3*time.Hour))

	if record.TotalSeconds != 5400 {
		t.Fatalf("expected total 5400s, got %.1f", record.TotalSeconds)
	}
	if err := record.Validate(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
	if record.FirstSessionAt != now {
		t.Fatalf("first session timestamp must stick to the first append")
	}
	if record.TotalHours() != 1.5 {
		t.Fatalf("expected 1.5 hours, got %.3f", record.TotalHours())
	}
}

func TestCompletionIsSetOnceAndNeverMoves(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := domain.NewRecord("user@example.com", 1, base)

	// 0.6h + 0.6h crosses the 1h target on the second append; the third must
	// not report a new completion nor move the timestamp.
	crossed := record.Append(entryOf(base, 2160, "lesson"), base.Add(1*time.Hour))
	if crossed {
		t.Fatalf("first append must not complete a 1h target")
	}
	crossed = record.Append(entryOf(base.Add(2*time.Hour), 2160, "lesson"), base.Add(3*time.Hour))
	if !crossed {
		t.Fatalf("second append must cross the target")
	}
	completedAt := *record.CompletedAt

	crossed = record.Append(entryOf(base.Add(4*time.Hour), 2160, "lesson"), base.Add(5*time.Hour))
	if crossed {
		t.Fatalf("third append must not report a second completion")
	}
	if !record.CompletedAt.Equal(completedAt) {
		t.Fatalf("completion timestamp moved from %v to %v", completedAt, *record.CompletedAt)
	}
}

func TestPercentAndRemainingAreClamped(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := domain.NewRecord("user@example.com", 1, base)
	record.Append(entryOf(base, 7200, "lesson"), base.Add(2*time.Hour))

	if pct := record.PercentComplete(); pct != 100 {
		t.Fatalf("expected percent clamped to 100, got %.2f", pct)
	}
	if rem := record.RemainingHours(); rem != 0 {
		t.Fatalf("expected zero remaining hours, got %.2f", rem)
	}
}

func TestFinalizeClampsBackwardsClock(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	active := domain.Active{ID: "s-1", UserID: "user@example.com", Label: "lesson", StartedAt: start}

	entry := active.Finalize(start.Add(-time.Minute))
	if entry.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration, got %.1f", entry.DurationSeconds)
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("clamped entry must be valid: %v", err)
	}
}

func TestValidateRejectsDriftedTotal(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := domain.NewRecord("user@example.com", 35, base)
	record.Append(entryOf(base, 600, "lesson"), base.Add(10*time.Minute))

	record.TotalSeconds += 42
	if err := record.Validate(); err == nil {
		t.Fatalf("drifted cached total must fail validation")
	}
}
