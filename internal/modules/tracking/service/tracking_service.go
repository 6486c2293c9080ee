package service

import (
	"fmt"
	"time"

	"lingobot/internal/modules/tracking/domain"
	"lingobot/internal/platform/clock"
	"lingobot/internal/platform/id"
)

type TrackingService struct {
	clock clock.Clock
	idGen id.Generator
}

func NewTrackingService(clock clock.Clock, idGen id.Generator) *TrackingService {
	return &TrackingService{clock: clock, idGen: idGen}
}

// Open creates an in-flight session starting now.
func (s *TrackingService) Open(userID, label string) (domain.Active, error) {
	if userID == "" {
		return domain.Active{}, fmt.Errorf("user id is required")
	}
	if label == "" {
		label = "unknown"
	}
	return domain.Active{
		ID:        s.idGen.New(),
		UserID:    userID,
		Label:     label,
		StartedAt: s.clock.Now(),
	}, nil
}

// Finalize closes the open session into the record: the entry is appended,
// totals recomputed and the completion mark set on the first target
// crossing. It reports whether this call was the crossing.
func (s *TrackingService) Finalize(record *domain.Record, active domain.Active) (domain.Entry, bool) {
	now := s.clock.Now()
	entry := active.Finalize(now)
	newlyCompleted := record.Append(entry, now)
	return entry, newlyCompleted
}

// NewRecord creates a user's record anchored at the given moment, fixing
// the target for the record's whole lifetime.
func (s *TrackingService) NewRecord(userID string, targetHours float64, at time.Time) domain.Record {
	return domain.NewRecord(userID, targetHours, at)
}

func (s *TrackingService) Now() time.Time {
	return s.clock.Now()
}
