// Package logging builds the prefixed component loggers used across the server.
package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

const header = "${time_rfc3339} ${level} [${prefix}]"

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer
	loggers []*log.Logger
)

// New returns a logger tagged with the component prefix.
func New(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	l := log.New(prefix)
	l.SetHeader(header)
	l.SetLevel(level)
	if output != nil {
		l.SetOutput(output)
	}
	loggers = append(loggers, l)
	return l
}

// SetLevel applies a level name (debug, info, warn, error, off) to every
// component logger, including ones created later.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(name)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// SetOutput redirects every component logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// ParseLevel maps a config level name to a gommon level. Unknown names mean info.
func ParseLevel(name string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
