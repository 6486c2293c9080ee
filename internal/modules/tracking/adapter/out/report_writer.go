package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingobot/internal/modules/tracking/domain"
	trackingout "lingobot/internal/modules/tracking/port/out"
	"lingobot/internal/platform/timefmt"
)

const reportTimestamp = "20060102_150405"

// FileReportWriter renders a record's full history to a plain-text file.
// Every invocation writes a new uniquely named file; a prior report for the
// same user is never overwritten.
type FileReportWriter struct {
	dir string
}

func NewFileReportWriter(dir string) trackingout.ReportSink {
	return &FileReportWriter{dir: dir}
}

func (w *FileReportWriter) Write(_ context.Context, record domain.Record, now time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path, err := w.uniquePath(record.UserID, now)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(render(record, now)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func (w *FileReportWriter) uniquePath(userID string, now time.Time) (string, error) {
	base := fmt.Sprintf("report_%s_%s", sanitizeUserID(userID), now.Format(reportTimestamp))
	for i := 0; i < 100; i++ {
		name := base + ".txt"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.txt", base, i)
		}
		path := filepath.Join(w.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not find a free report name for %s", userID)
}

func sanitizeUserID(userID string) string {
	replaced := strings.NewReplacer("@", "_at_", ".", "_", "/", "_", string(filepath.Separator), "_")
	return replaced.Replace(userID)
}

func render(record domain.Record, now time.Time) string {
	status := "IN PROGRESS"
	if record.Completed() {
		status = "COMPLETED"
	}

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 40)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "HOURS REPORT - LINGOBOT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "User: %s\n", record.UserID)
	fmt.Fprintf(&b, "Report date: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "SUMMARY")
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "Target hours: %.1fh\n", record.TargetHours)
	fmt.Fprintf(&b, "Hours completed: %.2fh (%s)\n", record.TotalHours(), timefmt.Clock(record.TotalSeconds))
	fmt.Fprintf(&b, "Progress: %.1f%%\n", record.PercentComplete())
	fmt.Fprintf(&b, "Hours remaining: %.2fh\n", record.RemainingHours())
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Total sessions: %d\n", len(record.Sessions))
	fmt.Fprintf(&b, "First session: %s\n", dateOrNA(record.FirstSessionAt))
	fmt.Fprintf(&b, "Last update: %s\n", dateOrNA(record.LastUpdatedAt))
	if record.CompletedAt != nil {
		fmt.Fprintf(&b, "Completed on: %s\n", record.CompletedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "SESSION HISTORY")
	fmt.Fprintln(&b, thin)
	for i, session := range record.Sessions {
		fmt.Fprintf(&b, "  %3d. %s | %s | %s\n",
			i+1,
			session.StartedAt.Format("2006-01-02 15:04:05"),
			timefmt.Clock(session.DurationSeconds),
			session.Label,
		)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Generated automatically by lingobot")
	fmt.Fprintln(&b, rule)
	return b.String()
}

func dateOrNA(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02")
}
