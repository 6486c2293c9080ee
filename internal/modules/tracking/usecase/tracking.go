package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"lingobot/internal/modules/tracking/domain"
	"lingobot/internal/modules/tracking/dto"
	trackingin "lingobot/internal/modules/tracking/port/in"
	trackingout "lingobot/internal/modules/tracking/port/out"
	"lingobot/internal/modules/tracking/service"
	apperrors "lingobot/internal/platform/errors"
	"lingobot/internal/platform/logging"
)

type Interactor struct {
	svc         *service.TrackingService
	records     trackingout.RecordStore
	activeStore trackingout.ActiveStore
	projector   trackingout.StatusProjector
	reports     trackingout.ReportSink
	targetHours float64
	log         hclog.Logger

	// pending holds records that exist only in memory: ones created at
	// session start and not yet written, and ones whose last save failed.
	// They are the freshest state for their user and are persisted at the
	// next mutation so an unwritable store never drops accumulated time.
	mu      sync.Mutex
	pending map[string]domain.Record
}

func NewInteractor(
	svc *service.TrackingService,
	records trackingout.RecordStore,
	activeStore trackingout.ActiveStore,
	projector trackingout.StatusProjector,
	reports trackingout.ReportSink,
	targetHours float64,
	log hclog.Logger,
) trackingin.Usecase {
	if log == nil {
		log = logging.Discard()
	}
	return &Interactor{
		svc:         svc,
		records:     records,
		activeStore: activeStore,
		projector:   projector,
		reports:     reports,
		targetHours: targetHours,
		log:         log.Named("tracking"),
		pending:     map[string]domain.Record{},
	}
}

func (i *Interactor) StartSession(ctx context.Context, input dto.StartInput) (dto.StartOutput, error) {
	userID := domain.NormalizeUserID(input.UserID)
	if userID == "" {
		return dto.StartOutput{}, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}

	active, err := i.svc.Open(userID, input.Label)
	if err != nil {
		return dto.StartOutput{}, err
	}
	if err := i.activeStore.Open(ctx, active); err != nil {
		return dto.StartOutput{}, err
	}

	// A first session creates the record, anchored at the session start so
	// no second clock read is needed. The record is parked in pending until
	// the stop that finalizes it writes it out.
	record, err := i.loadOrCreate(ctx, userID, active.StartedAt)
	if err != nil {
		_ = i.activeStore.Close(ctx, userID)
		return dto.StartOutput{}, err
	}

	i.log.Info("session started",
		"user", userID,
		"session", active.ID,
		"label", active.Label,
		"progress_percent", fmt.Sprintf("%.1f", record.PercentComplete()),
	)
	return dto.StartOutput{
		SessionID: active.ID,
		UserID:    userID,
		Label:     active.Label,
		StartedAt: active.StartedAt,
		Status:    statusOutput(record.Status()),
	}, nil
}

func (i *Interactor) StopSession(ctx context.Context, input dto.StopInput) (dto.StopOutput, error) {
	userID := domain.NormalizeUserID(input.UserID)

	// The whole stop runs under the mutex so two stops for the same user
	// cannot both observe the open session and finalize it twice.
	i.mu.Lock()
	defer i.mu.Unlock()

	active, err := i.activeStore.Get(ctx, userID)
	if err != nil {
		return dto.StopOutput{}, err
	}
	if input.SessionID != "" && input.SessionID != active.ID {
		return dto.StopOutput{}, fmt.Errorf("%w: session id mismatch", apperrors.ErrInvalidInput)
	}

	record, err := i.loadOrCreateLocked(ctx, userID, active.StartedAt)
	if err != nil {
		return dto.StopOutput{}, err
	}

	entry, newlyCompleted := i.svc.Finalize(&record, active)
	i.persistLocked(ctx, record)

	// The entry lives in the record (saved or pending) from here on; the
	// open-session slot can be released even if the save failed.
	if err := i.activeStore.Close(ctx, userID); err != nil {
		i.log.Error("close active session", "user", userID, "error", err)
	}

	reportPath := ""
	if newlyCompleted {
		i.log.Info("target hours reached", "user", userID, "target_hours", record.TargetHours)
		reportPath = i.writeReport(ctx, record)
	}

	i.log.Info("session ended",
		"user", userID,
		"session", entry.ID,
		"duration_seconds", fmt.Sprintf("%.0f", entry.DurationSeconds),
		"total_hours", fmt.Sprintf("%.2f", record.TotalHours()),
		"remaining_hours", fmt.Sprintf("%.2f", record.RemainingHours()),
	)
	return dto.StopOutput{
		SessionID:       entry.ID,
		UserID:          userID,
		StartedAt:       entry.StartedAt,
		EndedAt:         entry.EndedAt,
		DurationSeconds: entry.DurationSeconds,
		Label:           entry.Label,
		PercentComplete: record.PercentComplete(),
		HoursRemaining:  record.RemainingHours(),
		NewlyCompleted:  newlyCompleted,
		ReportPath:      reportPath,
	}, nil
}

func (i *Interactor) Status(ctx context.Context, userID string) (dto.StatusOutput, error) {
	record, err := i.loadExisting(ctx, domain.NormalizeUserID(userID))
	if err != nil {
		return dto.StatusOutput{}, err
	}
	return statusOutput(record.Status()), nil
}

func (i *Interactor) StatusAll(ctx context.Context) ([]dto.StatusOutput, error) {
	statuses, err := i.projector.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StatusOutput, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, statusOutput(status))
	}
	return out, nil
}

func (i *Interactor) Report(ctx context.Context, userID string) (dto.ReportOutput, error) {
	normalized := domain.NormalizeUserID(userID)
	record, err := i.loadExisting(ctx, normalized)
	if err != nil {
		return dto.ReportOutput{}, err
	}
	path, err := i.reports.Write(ctx, record, i.svc.Now())
	if err != nil {
		return dto.ReportOutput{}, fmt.Errorf("write report: %w", err)
	}
	return dto.ReportOutput{UserID: normalized, Path: path}, nil
}

func (i *Interactor) Reindex(ctx context.Context) error {
	if err := i.projector.Reset(ctx); err != nil {
		return fmt.Errorf("reset status index: %w", err)
	}
	records, err := i.records.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := i.projector.Upsert(ctx, record); err != nil {
			return fmt.Errorf("project %s: %w", record.UserID, err)
		}
	}
	return nil
}

// persistLocked saves the record and projects its status. A failed save
// parks the record in pending so the next mutation retries the write with
// the full accumulated state; projection errors only log, the read model is
// rebuildable.
func (i *Interactor) persistLocked(ctx context.Context, record domain.Record) {
	if err := i.records.Save(ctx, record); err != nil {
		i.pending[record.UserID] = record
		i.log.Error("save tracking record, keeping state in memory", "user", record.UserID, "error", err)
		return
	}
	delete(i.pending, record.UserID)
	if err := i.projector.Upsert(ctx, record); err != nil {
		i.log.Warn("project record status", "user", record.UserID, "error", err)
	}
}

func (i *Interactor) writeReport(ctx context.Context, record domain.Record) string {
	path, err := i.reports.Write(ctx, record, i.svc.Now())
	if err != nil {
		// Completion state and the report artifact are decoupled: the record
		// stays completed even when the report cannot be written.
		i.log.Error("write completion report", "user", record.UserID, "error", err)
		return ""
	}
	i.log.Info("completion report written", "user", record.UserID, "path", path)
	return path
}

func (i *Interactor) loadOrCreate(ctx context.Context, userID string, at time.Time) (domain.Record, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadOrCreateLocked(ctx, userID, at)
}

// loadOrCreateLocked returns the freshest record for the user, creating it
// when none exists yet. A created record goes into pending immediately so
// every later call in the same process works on the same record.
func (i *Interactor) loadOrCreateLocked(ctx context.Context, userID string, at time.Time) (domain.Record, error) {
	if record, ok := i.pending[userID]; ok {
		return record, nil
	}
	record, err := i.records.Load(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		record = i.svc.NewRecord(userID, i.targetHours, at)
		i.pending[userID] = record
		return record, nil
	}
	if err != nil {
		return domain.Record{}, err
	}
	return record, nil
}

func (i *Interactor) loadExisting(ctx context.Context, userID string) (domain.Record, error) {
	i.mu.Lock()
	if record, ok := i.pending[userID]; ok {
		i.mu.Unlock()
		return record, nil
	}
	i.mu.Unlock()
	return i.records.Load(ctx, userID)
}

func statusOutput(status domain.Status) dto.StatusOutput {
	remaining := status.TargetHours - status.TotalHours
	if remaining < 0 {
		remaining = 0
	}
	return dto.StatusOutput{
		UserID:          status.UserID,
		TotalHours:      status.TotalHours,
		TotalSeconds:    status.TotalSeconds,
		TargetHours:     status.TargetHours,
		PercentComplete: status.PercentComplete,
		HoursRemaining:  remaining,
		SessionCount:    status.SessionCount,
		Completed:       status.Completed,
		FirstSessionAt:  status.FirstSessionAt,
		LastUpdatedAt:   status.LastUpdatedAt,
		CompletedAt:     status.CompletedAt,
	}
}
