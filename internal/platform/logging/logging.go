package logging

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// New builds the process logger. It is created once at startup and passed to
// every component at construction; nothing logs through a package global.
func New(level string) hclog.Logger {
	return NewWithOutput(level, os.Stderr)
}

func NewWithOutput(level string, out io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "lingobot",
		Level:  hclog.LevelFromString(level),
		Output: out,
	})
}

// Discard is used by tests and by components that were handed no logger.
func Discard() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.Off})
}
