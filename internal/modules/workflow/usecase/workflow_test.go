package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	trackingdto "lingobot/internal/modules/tracking/dto"
	"lingobot/internal/modules/workflow/domain"
	workflowdto "lingobot/internal/modules/workflow/dto"
	workflowin "lingobot/internal/modules/workflow/port/in"
	"lingobot/internal/modules/workflow/service"
	apperrors "lingobot/internal/platform/errors"
)

type fakeClock struct {
	mu     sync.Mutex
	values []time.Time
	idx    int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idx >= len(c.values) {
		return c.values[len(c.values)-1]
	}
	value := c.values[c.idx]
	c.idx++
	return value
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

type fakeTracker struct {
	mu             sync.Mutex
	starts         int
	stops          int
	open           bool
	known          bool
	status         trackingdto.StatusOutput
	completeOnStop int
	startedAt      time.Time
}

func (f *fakeTracker) StartSession(_ context.Context, input trackingdto.StartInput) (trackingdto.StartOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open {
		return trackingdto.StartOutput{}, apperrors.ErrActiveSessionExists
	}
	f.open = true
	f.starts++
	return trackingdto.StartOutput{
		SessionID: fmt.Sprintf("sess-%d", f.starts),
		UserID:    input.UserID,
		Label:     input.Label,
		StartedAt: f.startedAt,
		Status:    f.status,
	}, nil
}

func (f *fakeTracker) StopSession(_ context.Context, input trackingdto.StopInput) (trackingdto.StopOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return trackingdto.StopOutput{}, apperrors.ErrNoActiveSession
	}
	f.open = false
	f.stops++
	out := trackingdto.StopOutput{SessionID: input.SessionID, UserID: input.UserID}
	if f.completeOnStop > 0 && f.stops == f.completeOnStop {
		out.NewlyCompleted = true
		out.ReportPath = "reports/report_student_20260302.txt"
		f.status.Completed = true
	}
	return out, nil
}

func (f *fakeTracker) Status(context.Context, string) (trackingdto.StatusOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known {
		return trackingdto.StatusOutput{}, apperrors.ErrUserNotFound
	}
	return f.status, nil
}

func (f *fakeTracker) StatusAll(context.Context) ([]trackingdto.StatusOutput, error) {
	return nil, nil
}

func (f *fakeTracker) Report(context.Context, string) (trackingdto.ReportOutput, error) {
	return trackingdto.ReportOutput{}, apperrors.ErrUserNotFound
}

func (f *fakeTracker) Reindex(context.Context) error { return nil }

type fakeDriver struct {
	mu       sync.Mutex
	script   []domain.OutcomeStatus
	idx      int
	loginErr error
	logins   int
	calls    int
	onCall   func(call int)
}

func (d *fakeDriver) Describe(context.Context) (domain.DriverInfo, error) {
	return domain.DriverInfo{Name: "fake", Version: "0.0.1"}, nil
}

func (d *fakeDriver) Login(context.Context, domain.SessionInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logins++
	return d.loginErr
}

func (d *fakeDriver) RunIteration(_ context.Context, _ domain.SessionInfo, unit domain.Unit) (domain.Outcome, error) {
	d.mu.Lock()
	status := domain.OutcomeOK
	if len(d.script) > 0 {
		status = d.script[d.idx]
		if d.idx < len(d.script)-1 {
			d.idx++
		}
	}
	d.calls++
	call := d.calls
	onCall := d.onCall
	d.mu.Unlock()
	if onCall != nil {
		onCall(call)
	}
	reason := ""
	if status != domain.OutcomeOK {
		reason = "scripted " + string(status) + " on " + unit.Label()
	}
	return domain.Outcome{Status: status, Reason: reason}, nil
}

func newRunner(tracker *fakeTracker, driver *fakeDriver, clk *fakeClock) workflowin.Usecase {
	if clk == nil {
		clk = &fakeClock{values: []time.Time{at(9, 0)}}
	}
	return NewInteractor(service.NewPlanner(), tracker, driver, nil, nil, clk, nil)
}

func storiesInput() workflowdto.RunInput {
	return workflowdto.RunInput{
		UserID:  "Student@Example.com",
		Mode:    "stories",
		Stories: []string{"first", "second"},
	}
}

func lessonInput() workflowdto.RunInput {
	return workflowdto.RunInput{UserID: "student@example.com", Mode: "lesson", Lesson: "hollywood"}
}

func TestRunLoopsPassesUntilCompleted(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0), completeOnStop: 3}
	driver := &fakeDriver{}
	runner := newRunner(tracker, driver, nil)

	out, err := runner.Run(context.Background(), storiesInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Completed || out.Reason != string(domain.StopCompleted) {
		t.Fatalf("expected completed run, got %+v", out)
	}
	if out.Sessions != 3 || tracker.starts != 3 || tracker.stops != 3 {
		t.Fatalf("expected 3 closed sessions, got out=%d starts=%d stops=%d", out.Sessions, tracker.starts, tracker.stops)
	}
	if out.Iterations != 6 {
		t.Fatalf("expected 6 iterations across 3 passes, got %d", out.Iterations)
	}
	if out.ReportPath == "" {
		t.Fatal("completed run must carry the report path")
	}
	if driver.logins != 3 {
		t.Fatalf("expected one login per session, got %d", driver.logins)
	}
}

func TestFatalOutcomeStillClosesTheSession(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0)}
	driver := &fakeDriver{script: []domain.OutcomeStatus{domain.OutcomeOK, domain.OutcomeFatal}}
	runner := newRunner(tracker, driver, nil)

	out, err := runner.Run(context.Background(), lessonInput())
	if err == nil || !strings.Contains(err.Error(), "failed fatally") {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if out.Reason != string(domain.StopFatal) {
		t.Fatalf("expected fatal reason, got %q", out.Reason)
	}
	if tracker.starts != 2 || tracker.stops != 2 {
		t.Fatalf("every opened session must be closed: starts=%d stops=%d", tracker.starts, tracker.stops)
	}
	if out.Sessions != 2 || out.Iterations != 2 {
		t.Fatalf("unexpected counters: %+v", out)
	}
}

func TestRetryBudgetExhaustionIsFatal(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0)}
	driver := &fakeDriver{script: []domain.OutcomeStatus{domain.OutcomeRetry}}
	runner := newRunner(tracker, driver, nil)

	input := lessonInput()
	input.MaxRetries = 3
	out, err := runner.Run(context.Background(), input)
	if err == nil || !strings.Contains(err.Error(), "giving up") {
		t.Fatalf("expected retry exhaustion error, got %v", err)
	}
	if out.Iterations != 4 {
		t.Fatalf("expected 1 attempt plus 3 retries, got %d", out.Iterations)
	}
	if tracker.stops != 1 {
		t.Fatalf("session not closed after retry exhaustion: stops=%d", tracker.stops)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0), completeOnStop: 1}
	driver := &fakeDriver{script: []domain.OutcomeStatus{domain.OutcomeRetry, domain.OutcomeOK}}
	runner := newRunner(tracker, driver, nil)

	out, err := runner.Run(context.Background(), lessonInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Completed || out.Sessions != 1 || out.Iterations != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestInterruptClosesOpenSessionAtNextBoundary(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0)}
	driver := &fakeDriver{}
	driver.onCall = func(call int) {
		if call == 1 {
			cancel()
		}
	}
	runner := newRunner(tracker, driver, nil)

	out, err := runner.Run(ctx, storiesInput())
	if err != nil {
		t.Fatalf("interrupt is not an error: %v", err)
	}
	if out.Reason != string(domain.StopInterrupted) {
		t.Fatalf("expected interrupted reason, got %q", out.Reason)
	}
	if out.Iterations != 1 {
		t.Fatalf("interrupt must wait for the iteration boundary, got %d iterations", out.Iterations)
	}
	if tracker.starts != 1 || tracker.stops != 1 {
		t.Fatalf("open session must be closed on interrupt: starts=%d stops=%d", tracker.starts, tracker.stops)
	}
}

func TestAlreadyCompletedUserOpensNoSession(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35, Completed: true}}
	runner := newRunner(tracker, &fakeDriver{}, nil)

	out, err := runner.Run(context.Background(), lessonInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Reason != string(domain.StopTargetReached) {
		t.Fatalf("expected target_reached, got %q", out.Reason)
	}
	if tracker.starts != 0 || out.Sessions != 0 {
		t.Fatalf("no session should be opened for a completed user: starts=%d", tracker.starts)
	}
}

func TestProjectedCompletionStopsMidPass(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{
		known:          true,
		status:         trackingdto.StatusOutput{TargetHours: 1, TotalSeconds: 3480},
		startedAt:      at(9, 0),
		completeOnStop: 1,
	}
	driver := &fakeDriver{}
	clk := &fakeClock{values: []time.Time{at(9, 0), at(9, 5)}}
	runner := newRunner(tracker, driver, clk)

	input := storiesInput()
	input.Stories = []string{"first", "second", "third"}
	out, err := runner.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Completed {
		t.Fatalf("expected completion, got %+v", out)
	}
	if out.Iterations != 1 {
		t.Fatalf("projected completion should stop after the first unit, got %d iterations", out.Iterations)
	}
	if tracker.stops != 1 {
		t.Fatalf("expected exactly one closed session, got %d", tracker.stops)
	}
}

func TestLoginRefusalIsFatal(t *testing.T) {
	t.Parallel()
	tracker := &fakeTracker{known: true, status: trackingdto.StatusOutput{TargetHours: 35}, startedAt: at(9, 0)}
	driver := &fakeDriver{loginErr: errors.New("bad credentials")}
	runner := newRunner(tracker, driver, nil)

	out, err := runner.Run(context.Background(), lessonInput())
	if err == nil || !strings.Contains(err.Error(), "driver login") {
		t.Fatalf("expected login error, got %v", err)
	}
	if out.Reason != string(domain.StopFatal) || out.Iterations != 0 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if tracker.stops != 1 {
		t.Fatalf("session must be closed after login failure: stops=%d", tracker.stops)
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	runner := newRunner(&fakeTracker{}, &fakeDriver{}, nil)
	_, err := runner.Run(context.Background(), workflowdto.RunInput{UserID: "user", Mode: "practice"})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type fakeManifests struct {
	manifests []domain.DriverManifest
}

func (f *fakeManifests) Load(context.Context) ([]domain.DriverManifest, error) {
	return f.manifests, nil
}

type fakeProbe struct {
	errs map[string]error
}

func (f *fakeProbe) Describe(_ context.Context, manifest domain.DriverManifest) (domain.DriverInfo, error) {
	if err := f.errs[manifest.Name]; err != nil {
		return domain.DriverInfo{}, err
	}
	return domain.DriverInfo{Name: manifest.Name, Version: "1.0.0", Modes: []string{"lesson"}}, nil
}

func TestCheckDriversProbesOnlyEnabledValidManifests(t *testing.T) {
	t.Parallel()
	manifests := &fakeManifests{manifests: []domain.DriverManifest{
		{Name: "scripted", Binary: "/bin/scripted", Enabled: true},
		{Name: "browser", Binary: "/bin/browser", Enabled: false},
		{Name: "broken", Enabled: true},
		{Name: "flaky", Binary: "/bin/flaky", Enabled: true},
	}}
	probe := &fakeProbe{errs: map[string]error{"flaky": errors.New("handshake failed")}}
	runner := NewInteractor(service.NewPlanner(), &fakeTracker{}, &fakeDriver{}, probe, manifests, &fakeClock{values: []time.Time{at(9, 0)}}, nil)

	out, err := runner.CheckDrivers(context.Background())
	if err != nil {
		t.Fatalf("check drivers: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(out))
	}
	if out[0].Version != "1.0.0" || out[0].Err != "" {
		t.Fatalf("enabled driver not probed: %+v", out[0])
	}
	if out[1].Version != "" || out[1].Err != "" {
		t.Fatalf("disabled driver should be skipped: %+v", out[1])
	}
	if out[2].Err == "" {
		t.Fatalf("invalid manifest should carry an error: %+v", out[2])
	}
	if out[3].Err != "handshake failed" {
		t.Fatalf("probe failure not reported: %+v", out[3])
	}
}
