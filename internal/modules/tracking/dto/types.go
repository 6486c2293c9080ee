package dto

import "time"

type StartInput struct {
	UserID string
	Label  string
}

type StartOutput struct {
	SessionID string
	UserID    string
	Label     string
	StartedAt time.Time
	Status    StatusOutput
}

type StopInput struct {
	UserID string
	// SessionID is optional; when set it must match the open session.
	SessionID string
}

type StopOutput struct {
	SessionID       string
	UserID          string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds float64
	Label           string
	PercentComplete float64
	HoursRemaining  float64
	NewlyCompleted  bool
	ReportPath      string
}

type StatusOutput struct {
	UserID          string
	TotalHours      float64
	TotalSeconds    float64
	TargetHours     float64
	PercentComplete float64
	HoursRemaining  float64
	SessionCount    int
	Completed       bool
	FirstSessionAt  time.Time
	LastUpdatedAt   time.Time
	CompletedAt     *time.Time
}

type ReportOutput struct {
	UserID string
	Path   string
}
