// Package logger builds preconfigured charmbracelet/log instances for the
// few spots that cannot share the package-level logger, like the version
// banner.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// NewWithConfig creates a charm log with custom config, detached from the
// global level.
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
