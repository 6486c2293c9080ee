package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects what a run session works through: a single lesson or the
// configured story rotation.
type Mode string

const (
	ModeLesson  Mode = "lesson"
	ModeStories Mode = "stories"
)

// Unit is one piece of work handed to the automation driver.
type Unit struct {
	Kind  string
	Name  string
	Index int
}

func (u Unit) Label() string {
	if u.Name == "" {
		return u.Kind
	}
	return u.Kind + ":" + u.Name
}

// OutcomeStatus classifies a driver iteration result.
type OutcomeStatus string

const (
	OutcomeOK    OutcomeStatus = "ok"
	OutcomeRetry OutcomeStatus = "retry"
	OutcomeFatal OutcomeStatus = "fatal"
)

type Outcome struct {
	Status OutcomeStatus
	Reason string
}

// Plan is an immutable description of a run: who is practicing, which units
// make up one pass, and how failures are retried.
type Plan struct {
	UserID     string
	Mode       Mode
	Units      []Unit
	MaxRetries int
	RetryDelay time.Duration
}

func NewPlan(userID string, mode Mode, lesson string, stories []string, maxRetries int, retryDelay time.Duration) (Plan, error) {
	plan := Plan{
		UserID:     strings.ToLower(strings.TrimSpace(userID)),
		Mode:       mode,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	}
	switch mode {
	case ModeLesson:
		name := strings.TrimSpace(lesson)
		if name == "" {
			return Plan{}, fmt.Errorf("lesson mode requires a lesson name")
		}
		plan.Units = []Unit{{Kind: "lesson", Name: name}}
	case ModeStories:
		for i, story := range stories {
			story = strings.TrimSpace(story)
			if story == "" {
				continue
			}
			plan.Units = append(plan.Units, Unit{Kind: "story", Name: story, Index: i})
		}
		if len(plan.Units) == 0 {
			return Plan{}, fmt.Errorf("stories mode requires at least one story")
		}
	default:
		return Plan{}, fmt.Errorf("unknown mode %q", mode)
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (p Plan) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("plan user id is empty")
	}
	if len(p.Units) == 0 {
		return fmt.Errorf("plan has no units")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("plan max retries is negative")
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("plan retry delay is negative")
	}
	return nil
}

// Label is the tracking label recorded against every session of this plan.
func (p Plan) Label() string {
	if p.Mode == ModeLesson {
		return p.Units[0].Label()
	}
	return string(ModeStories)
}

// SessionInfo identifies the open tracking session a driver works under.
type SessionInfo struct {
	UserID    string
	SessionID string
	Label     string
	StartedAt time.Time
}

// StopReason records why a run ended.
type StopReason string

const (
	StopCompleted     StopReason = "completed"
	StopTargetReached StopReason = "target_reached"
	StopInterrupted   StopReason = "interrupted"
	StopFatal         StopReason = "fatal"
)

// RunResult summarizes a finished run. Sessions counts closed tracking
// sessions; Iterations counts individual driver attempts across all of them.
type RunResult struct {
	Sessions   int
	Iterations int
	Completed  bool
	ReportPath string
	Reason     StopReason
}

// DriverInfo is what an automation driver reports about itself.
type DriverInfo struct {
	Name    string
	Version string
	Modes   []string
}

// DriverManifest locates an installed driver binary.
type DriverManifest struct {
	Name    string            `yaml:"name"`
	Binary  string            `yaml:"binary"`
	Enabled bool              `yaml:"enabled"`
	Env     map[string]string `yaml:"env,omitempty"`
}

func (m DriverManifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("driver manifest name is empty")
	}
	if strings.TrimSpace(m.Binary) == "" {
		return fmt.Errorf("driver manifest %q has no binary", m.Name)
	}
	return nil
}

// TargetProjected reports whether the target would already be met if the
// session open since startedAt were closed at now. Checked between
// iterations so a pass never overshoots the goal by a full unit.
func TargetProjected(totalSeconds, targetHours float64, startedAt, now time.Time) bool {
	if targetHours <= 0 {
		return false
	}
	elapsed := now.Sub(startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return totalSeconds+elapsed >= targetHours*3600
}
