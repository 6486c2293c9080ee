package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Entry is one finalized start/stop cycle.
type Entry struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds float64
	Label           string
}

func (e Entry) Validate() error {
	if e.EndedAt.Before(e.StartedAt) {
		return fmt.Errorf("session %s ends before it starts", e.ID)
	}
	if e.DurationSeconds < 0 {
		return fmt.Errorf("session %s has negative duration", e.ID)
	}
	return nil
}

// Active is an in-flight session. It is invisible to totals until finalized.
type Active struct {
	ID        string
	UserID    string
	Label     string
	StartedAt time.Time
}

// Finalize turns an open session into an Entry ending at endedAt. A clock
// that moved backwards clamps the duration to zero rather than recording a
// negative interval.
func (a Active) Finalize(endedAt time.Time) Entry {
	duration := endedAt.Sub(a.StartedAt).Seconds()
	if duration < 0 {
		duration = 0
		endedAt = a.StartedAt
	}
	return Entry{
		ID:              a.ID,
		StartedAt:       a.StartedAt,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		Label:           a.Label,
	}
}

// Record is the per-user tracking state. UserID and TargetHours are fixed at
// creation; Sessions is append-only and chronological; TotalSeconds always
// equals the sum over Sessions; CompletedAt is set at most once.
type Record struct {
	UserID         string
	TargetHours    float64
	Sessions       []Entry
	TotalSeconds   float64
	FirstSessionAt time.Time
	LastUpdatedAt  time.Time
	CompletedAt    *time.Time
}

// NormalizeUserID canonicalizes an email-shaped identity for use as the
// store key.
func NormalizeUserID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

func NewRecord(userID string, targetHours float64, now time.Time) Record {
	return Record{
		UserID:        NormalizeUserID(userID),
		TargetHours:   targetHours,
		Sessions:      []Entry{},
		LastUpdatedAt: now,
	}
}

// Append finalizes a mutation: the entry joins the history, the cached total
// is recomputed, timestamps advance, and the completion mark is set on the
// first crossing of the target. It reports whether this append was the
// crossing.
func (r *Record) Append(entry Entry, now time.Time) bool {
	r.Sessions = append(r.Sessions, entry)
	r.TotalSeconds = r.sumSeconds()
	if r.FirstSessionAt.IsZero() {
		r.FirstSessionAt = entry.StartedAt
	}
	r.LastUpdatedAt = now

	if r.CompletedAt == nil && r.TotalSeconds >= r.TargetSeconds() {
		completed := now
		r.CompletedAt = &completed
		return true
	}
	return false
}

func (r Record) sumSeconds() float64 {
	var total float64
	for _, s := range r.Sessions {
		total += s.DurationSeconds
	}
	return total
}

func (r Record) TargetSeconds() float64 {
	return r.TargetHours * 3600
}

func (r Record) TotalHours() float64 {
	return r.TotalSeconds / 3600
}

func (r Record) RemainingHours() float64 {
	return math.Max(0, r.TargetHours-r.TotalHours())
}

func (r Record) PercentComplete() float64 {
	if r.TargetHours <= 0 {
		return 0
	}
	pct := r.TotalHours() / r.TargetHours * 100
	return math.Min(100, math.Max(0, pct))
}

func (r Record) Completed() bool {
	return r.CompletedAt != nil
}

// Validate checks the structural invariants: cached total matches the session
// sum and every entry is well-formed.
func (r Record) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("record user id is required")
	}
	if r.TargetHours <= 0 {
		return fmt.Errorf("record target hours must be positive")
	}
	for _, s := range r.Sessions {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if diff := math.Abs(r.TotalSeconds - r.sumSeconds()); diff > 1e-6 {
		return fmt.Errorf("total_seconds %.3f does not match session sum %.3f", r.TotalSeconds, r.sumSeconds())
	}
	return nil
}

// Summary is the result of stopping a session. NewlyCompleted is true only
// on the call where the target was first reached.
type Summary struct {
	UserID          string
	Entry           Entry
	PercentComplete float64
	HoursRemaining  float64
	NewlyCompleted  bool
}

// Status is the read-only view of a record.
type Status struct {
	UserID          string
	TotalHours      float64
	TotalSeconds    float64
	TargetHours     float64
	PercentComplete float64
	SessionCount    int
	Completed       bool
	FirstSessionAt  time.Time
	LastUpdatedAt   time.Time
	CompletedAt     *time.Time
}

func (r Record) Status() Status {
	return Status{
		UserID:          r.UserID,
		TotalHours:      r.TotalHours(),
		TotalSeconds:    r.TotalSeconds,
		TargetHours:     r.TargetHours,
		PercentComplete: r.PercentComplete(),
		SessionCount:    len(r.Sessions),
		Completed:       r.Completed(),
		FirstSessionAt:  r.FirstSessionAt,
		LastUpdatedAt:   r.LastUpdatedAt,
		CompletedAt:     r.CompletedAt,
	}
}
