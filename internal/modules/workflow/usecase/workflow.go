package usecase

import (
	"context"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	trackingdto "lingobot/internal/modules/tracking/dto"
	trackingin "lingobot/internal/modules/tracking/port/in"
	"lingobot/internal/modules/workflow/domain"
	workflowdto "lingobot/internal/modules/workflow/dto"
	workflowin "lingobot/internal/modules/workflow/port/in"
	workflowout "lingobot/internal/modules/workflow/port/out"
	"lingobot/internal/modules/workflow/service"
	"lingobot/internal/platform/clock"
	apperrors "lingobot/internal/platform/errors"
	"lingobot/internal/platform/logging"
)

type closeReason int

const (
	reasonListExhausted closeReason = iota
	reasonTargetReached
	reasonInterrupted
	reasonFatal
)

// Interactor drives practice sessions: it opens a tracking session, walks the
// plan's units through the driver, and closes the session before deciding
// whether another pass is needed.
type Interactor struct {
	planner   *service.Planner
	tracker   trackingin.Usecase
	driver    workflowout.Driver
	probe     workflowout.DriverProbe
	manifests workflowout.ManifestStore
	clock     clock.Clock
	log       hclog.Logger
}

func NewInteractor(
	planner *service.Planner,
	tracker trackingin.Usecase,
	driver workflowout.Driver,
	probe workflowout.DriverProbe,
	manifests workflowout.ManifestStore,
	clk clock.Clock,
	log hclog.Logger,
) workflowin.Usecase {
	if log == nil {
		log = logging.Discard()
	}
	return &Interactor{
		planner:   planner,
		tracker:   tracker,
		driver:    driver,
		probe:     probe,
		manifests: manifests,
		clock:     clk,
		log:       log.Named("workflow"),
	}
}

func (i *Interactor) Run(ctx context.Context, input workflowdto.RunInput) (workflowdto.RunOutput, error) {
	plan, err := i.planner.BuildPlan(input)
	if err != nil {
		return workflowdto.RunOutput{}, err
	}
	if i.driver == nil {
		return workflowdto.RunOutput{}, apperrors.ErrDriverNotConfigured
	}
	log := i.log.With("user", plan.UserID, "mode", string(plan.Mode))

	var result domain.RunResult
	for {
		if ctx.Err() != nil {
			result.Reason = domain.StopInterrupted
			return runOutput(result), nil
		}
		if status, err := i.tracker.Status(ctx, plan.UserID); err == nil && status.Completed {
			result.Reason = domain.StopTargetReached
			log.Info("target already reached", "total_hours", status.TotalHours)
			return runOutput(result), nil
		}

		start, err := i.tracker.StartSession(ctx, trackingdto.StartInput{UserID: plan.UserID, Label: plan.Label()})
		if err != nil {
			return runOutput(result), fmt.Errorf("start session: %w", err)
		}
		session := domain.SessionInfo{
			UserID:    plan.UserID,
			SessionID: start.SessionID,
			Label:     plan.Label(),
			StartedAt: start.StartedAt,
		}
		log.Info("session opened", "session_id", session.SessionID, "label", session.Label)

		reason, iterations, runErr := i.runSession(ctx, plan, session, start.Status)
		result.Iterations += iterations

		// The session is closed no matter how the pass ended.
		stop, stopErr := i.tracker.StopSession(ctx, trackingdto.StopInput{UserID: plan.UserID, SessionID: session.SessionID})
		if stopErr != nil {
			if runErr != nil {
				log.Error("close session after failed pass", "error", stopErr)
				result.Reason = domain.StopFatal
				return runOutput(result), runErr
			}
			return runOutput(result), fmt.Errorf("close session: %w", stopErr)
		}
		result.Sessions++
		log.Info("session closed",
			"session_id", session.SessionID,
			"duration_seconds", stop.DurationSeconds,
			"percent_complete", stop.PercentComplete,
		)

		if stop.NewlyCompleted {
			result.Completed = true
			result.ReportPath = stop.ReportPath
			result.Reason = domain.StopCompleted
			log.Info("target hours reached", "report", stop.ReportPath)
			return runOutput(result), nil
		}

		switch reason {
		case reasonFatal:
			result.Reason = domain.StopFatal
			return runOutput(result), runErr
		case reasonInterrupted:
			result.Reason = domain.StopInterrupted
			return runOutput(result), nil
		case reasonTargetReached:
			result.Reason = domain.StopTargetReached
			return runOutput(result), nil
		}
		// List exhausted: start the next pass over the same units.
	}
}

// runSession executes one pass over the plan's units. Stop conditions are
// checked only between iterations so the driver is never cut off mid-unit.
func (i *Interactor) runSession(ctx context.Context, plan domain.Plan, session domain.SessionInfo, baseline trackingdto.StatusOutput) (closeReason, int, error) {
	if err := i.driver.Login(ctx, session); err != nil {
		if ctx.Err() != nil {
			return reasonInterrupted, 0, nil
		}
		return reasonFatal, 0, fmt.Errorf("driver login: %w", err)
	}

	iterations := 0
	for _, unit := range plan.Units {
		if ctx.Err() != nil {
			return reasonInterrupted, iterations, nil
		}
		if baseline.Completed || domain.TargetProjected(baseline.TotalSeconds, baseline.TargetHours, session.StartedAt, i.clock.Now()) {
			return reasonTargetReached, iterations, nil
		}
		attempts, err := i.runUnit(ctx, plan, session, unit)
		iterations += attempts
		if err != nil {
			if ctx.Err() != nil {
				return reasonInterrupted, iterations, nil
			}
			return reasonFatal, iterations, err
		}
	}
	return reasonListExhausted, iterations, nil
}

func (i *Interactor) runUnit(ctx context.Context, plan domain.Plan, session domain.SessionInfo, unit domain.Unit) (int, error) {
	attempts := 0
	retries := 0
	for {
		outcome, err := i.driver.RunIteration(ctx, session, unit)
		attempts++
		if err != nil {
			return attempts, fmt.Errorf("run %s: %w", unit.Label(), err)
		}
		switch outcome.Status {
		case domain.OutcomeOK:
			return attempts, nil
		case domain.OutcomeRetry:
			retries++
			if retries > plan.MaxRetries {
				return attempts, fmt.Errorf("%s failed %d times, giving up: %s", unit.Label(), retries, outcome.Reason)
			}
			i.log.Warn("iteration failed, retrying", "unit", unit.Label(), "attempt", retries, "reason", outcome.Reason)
			if err := sleep(ctx, plan.RetryDelay); err != nil {
				return attempts, err
			}
		case domain.OutcomeFatal:
			return attempts, fmt.Errorf("%s failed fatally: %s", unit.Label(), outcome.Reason)
		default:
			return attempts, fmt.Errorf("driver returned unknown status %q for %s", outcome.Status, unit.Label())
		}
	}
}

func (i *Interactor) CheckDrivers(ctx context.Context) ([]workflowdto.DriverOutput, error) {
	if i.manifests == nil {
		return nil, apperrors.ErrDriverNotConfigured
	}
	manifests, err := i.manifests.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]workflowdto.DriverOutput, 0, len(manifests))
	for _, manifest := range manifests {
		entry := workflowdto.DriverOutput{Name: manifest.Name, Binary: manifest.Binary, Enabled: manifest.Enabled}
		if err := manifest.Validate(); err != nil {
			entry.Err = err.Error()
			out = append(out, entry)
			continue
		}
		if !manifest.Enabled {
			out = append(out, entry)
			continue
		}
		info, err := i.probe.Describe(ctx, manifest)
		if err != nil {
			entry.Err = err.Error()
		} else {
			entry.Version = info.Version
			entry.Modes = info.Modes
		}
		out = append(out, entry)
	}
	return out, nil
}

func runOutput(result domain.RunResult) workflowdto.RunOutput {
	return workflowdto.RunOutput{
		Sessions:   result.Sessions,
		Iterations: result.Iterations,
		Completed:  result.Completed,
		ReportPath: result.ReportPath,
		Reason:     string(result.Reason),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
