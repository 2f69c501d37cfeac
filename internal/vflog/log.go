// Package vflog provides the leveled logger used across the compiler and
// CLI driver. The teacher never pulls in a structured-logging library
// (zap, zerolog, logrus all appear nowhere in its dependency graph), so
// this wraps the standard library's log.Logger rather than reaching for
// one -- the one ambient concern in this codebase that stays on stdlib by
// design, not convenience.
package vflog

import (
	"io"
	"log"
	"os"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Logger gates log.Logger output by a minimum level.
type Logger struct {
	min Level
	out *log.Logger
}

func New(w io.Writer, min Level) *Logger {
	return &Logger{min: min, out: log.New(w, "", log.LstdFlags)}
}

// Default writes to stderr at LevelInfo, matching the CLI driver's
// default verbosity.
func Default() *Logger { return New(os.Stderr, LevelInfo) }

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.out.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
