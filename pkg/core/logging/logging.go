// Package logging configures the process-wide structured logger.
package logging

import (
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup replaces log.DefaultLogger. format is "json" or "console".
func Setup(level, format string) {
	logger := log.Logger{
		Level:      log.ParseLevel(strings.ToLower(level)),
		Caller:     1,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	if strings.EqualFold(format, "json") {
		logger.Writer = &log.IOWriter{Writer: os.Stdout}
	} else {
		logger.Writer = &log.ConsoleWriter{
			ColorOutput:    true,
			QuoteString:    true,
			EndWithMessage: true,
		}
	}

	log.DefaultLogger = logger
}
