package shared

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a pretty stderr logger at info, or debug when asked.
func SetupLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// SetupLoggerLevel is like SetupLogger but takes a level name from config.
// Unknown names fall back to info.
func SetupLoggerLevel(name string) *log.Logger {
	logger := SetupLogger(false)
	if level, err := log.ParseLevel(name); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
