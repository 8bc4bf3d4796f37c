// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is a small leveled-logging facade, kept deliberately thin
// since logging setup is a glue concern rather than part of the analysis
// core. The surface mirrors the teacher's own logging dependency closely
// enough that callers can swap in a fuller implementation without
// touching call sites: a Logger sink, a level Filter wrapping it, and a
// Helper that adds the printf-style convenience methods the rest of the
// tree calls.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a logging severity, ordered Debug < Info < Warn < Error < Fatal.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the sink every Helper call eventually reaches. keyvals is an
// alternating key/value sequence, following the same convention as the
// structured loggers in the teacher's ecosystem.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger writes one line per Log call to w, timestamped.
type stdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger returns a Logger that writes plain text lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format(time.RFC3339)
	if _, err := fmt.Fprintf(l.w, "%s level=%s", ts, level); err != nil {
		return err
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		if _, err := fmt.Fprintf(l.w, " %v=%v", keyvals[i], keyvals[i+1]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(l.w)
	return err
}

// Option configures a filter built by NewFilter.
type Option func(*filter)

type filter struct {
	logger Logger
	level  Level
}

// FilterLevel drops any Log call below level.
func FilterLevel(level Level) Option {
	return func(f *filter) { f.level = level }
}

// NewFilter wraps logger with a minimum severity; Log calls below that
// severity are silently dropped rather than reaching the sink.
func NewFilter(logger Logger, opts ...Option) Logger {
	f := &filter{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper adds printf-style convenience methods over a Logger, the same
// way every call site in the command-line tool uses it: log.Infof(...),
// log.Errorf(...), log.Debug(...).
type Helper struct {
	logger Logger
}

// NewHelper wraps logger with the Debug/Info/Warn/Error/Fatal family.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, msg string) {
	h.logger.Log(level, "msg", msg)
}

func (h *Helper) Debug(args ...interface{}) { h.log(LevelDebug, fmt.Sprint(args...)) }
func (h *Helper) Info(args ...interface{})  { h.log(LevelInfo, fmt.Sprint(args...)) }
func (h *Helper) Warn(args ...interface{})  { h.log(LevelWarn, fmt.Sprint(args...)) }
func (h *Helper) Error(args ...interface{}) { h.log(LevelError, fmt.Sprint(args...)) }

func (h *Helper) Debugf(format string, args ...interface{}) { h.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (h *Helper) Infof(format string, args ...interface{})  { h.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (h *Helper) Warnf(format string, args ...interface{})  { h.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (h *Helper) Errorf(format string, args ...interface{}) { h.log(LevelError, fmt.Sprintf(format, args...)) }

func (h *Helper) Fatal(args ...interface{}) {
	h.log(LevelFatal, fmt.Sprint(args...))
	os.Exit(1)
}

func (h *Helper) Fatalf(format string, args ...interface{}) {
	h.log(LevelFatal, fmt.Sprintf(format, args...))
	os.Exit(1)
}
