package dto

import "time"

type RunInput struct {
	UserID     string
	Mode       string
	Lesson     string
	Stories    []string
	MaxRetries int
	RetryDelay time.Duration
}

type RunOutput struct {
	Sessions   int
	Iterations int
	Completed  bool
	ReportPath string
	Reason     string
}

type DriverOutput struct {
	Name    string
	Binary  string
	Enabled bool
	Version string
	Modes   []string
	Err     string
}
