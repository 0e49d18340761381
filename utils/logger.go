package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging throughout the application. A Logger may
// carry a prefix (for example a request id) that is printed on every line.
type Logger struct {
	info   *log.Logger
	warn   *log.Logger
	err    *log.Logger
	debug  *log.Logger
	prefix string
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	flags := 0
	return &Logger{
		info:  log.New(os.Stdout, "", flags),
		warn:  log.New(os.Stdout, "", flags),
		err:   log.New(os.Stderr, "", flags),
		debug: log.New(os.Stdout, "", flags),
	}
}

// NewDiscardLogger returns a Logger that drops everything. Used in tests.
func NewDiscardLogger() *Logger {
	return &Logger{
		info:  log.New(io.Discard, "", 0),
		warn:  log.New(io.Discard, "", 0),
		err:   log.New(io.Discard, "", 0),
		debug: log.New(io.Discard, "", 0),
	}
}

// With returns a copy of l that prefixes every message with p.
func (l *Logger) With(p string) *Logger {
	cp := *l
	if cp.prefix != "" {
		cp.prefix = cp.prefix + " " + p
	} else {
		cp.prefix = p
	}
	return &cp
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) line(level, format string) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s %s %s\n", l.timestamp(), level, l.prefix, format)
	}
	return fmt.Sprintf("[%s] %s %s\n", l.timestamp(), level, format)
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(l.line("\033[32mINFO\033[0m ", format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(l.line("\033[33mWARN\033[0m ", format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(l.line("\033[31mERROR\033[0m", format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.debug.Printf(l.line("\033[36mDEBUG\033[0m", format), args...)
}
