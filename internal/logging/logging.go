// Package logging centralizes the structured logger setup the rest of
// the module uses, built on charmbracelet/log. It keeps the teacher's
// bracketed-tag vocabulary ([build], [warn], [err], ...) by mapping
// each tag to a named logger component instead of a literal prefix
// string.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New builds a logger for component, writing to w with the given
// level. Passing a nil w defaults to stderr.
func New(component string, level log.Level, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05Z07:00",
		Prefix:          component,
	})
	logger.SetLevel(level)
	return logger
}

// ParseLevel maps verbose/quiet switches to a level, defaulting to Info;
// quiet wins over verbose. petictl's subcommands expose only -v/--verbose
// and always pass quiet as false.
func ParseLevel(verbose, quiet bool) log.Level {
	switch {
	case quiet:
		return log.WarnLevel
	case verbose:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}
