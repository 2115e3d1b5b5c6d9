package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

const prefix = "GECKO"

// Init initializes the process-wide logger
func Init(debug, noColor bool) {
	log.SetDefault(New(os.Stderr, debug, noColor))
}

// New creates a logger writing to w. Debug enables every level, otherwise
// only warnings and errors pass.
func New(w io.Writer, debug, noColor bool) *log.Logger {
	l := log.NewWithOptions(w,
		log.Options{
			ReportCaller:    debug,
			ReportTimestamp: false, // runs are short, the step counter orders trace lines
			TimeFormat:      time.RFC3339,
			Prefix:          prefix,
		})

	l.SetLevel(log.WarnLevel)
	if debug {
		l.SetLevel(log.DebugLevel)
	}

	l.SetColorProfile(termenv.ANSI256)
	if noColor {
		l.SetColorProfile(termenv.Ascii)
	}

	return l
}

// Tracer derives the logger handed to the VM. With trace on it passes
// debug lines regardless of the parent's level.
func Tracer(parent *log.Logger, trace bool) *log.Logger {
	t := parent.WithPrefix(prefix + " vm")
	t.SetReportCaller(false)
	if trace {
		t.SetLevel(log.DebugLevel)
	}
	return t
}
