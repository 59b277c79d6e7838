package zenith

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

// NewLoggerTo writes debug and info lines to out, warnings and errors to errOut.
func NewLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) line(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return level + ": " + msg
	}
	return "[" + l.prefix + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.out.Print(l.line("DEBUG", format, args...))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args...))
}

// scopedLogger tags every message with the subsystem that produced it.
type scopedLogger struct {
	Logger
	scope string
}

// Scoped returns a logger writing through l with "scope: " in front of every
// message. A nil l yields a no-op logger.
func Scoped(l Logger, scope string) Logger {
	if l == nil {
		return NewNopLogger()
	}
	if s, ok := l.(*scopedLogger); ok {
		return &scopedLogger{Logger: s.Logger, scope: s.scope + "/" + scope}
	}
	return &scopedLogger{Logger: l, scope: scope}
}

func (s *scopedLogger) Debugf(format string, args ...any) {
	s.Logger.Debugf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s *scopedLogger) Infof(format string, args ...any) {
	s.Logger.Infof("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s *scopedLogger) Warnf(format string, args ...any) {
	s.Logger.Warnf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s *scopedLogger) Errorf(format string, args ...any) {
	s.Logger.Errorf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

// LoggingModule installs a DefaultLogger as a resource. Modules installed
// after it log through it; nil writers mean stdout and stderr.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Out    io.Writer
	ErrOut io.Writer
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	out, errOut := m.Out, m.ErrOut
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	cmd.AddResources(NewLoggerTo(out, errOut, m.Prefix, m.Debug))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(enabled bool)             {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// Logger returns the installed logger resource, or a no-op logger when none
// is present. Never nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	if l, ok := Resource[DefaultLogger](app); ok {
		return l
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}
