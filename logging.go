package meadow

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes through a slog handler. The same handler is handed to
// the kernels via Slog so their attributes land in one stream.
type DefaultLogger struct {
	level *slog.LevelVar
	log   *slog.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLogger(os.Stderr, prefix, false, debug)
}

// NewLogger builds a logger writing text or JSON records to w.
func NewLogger(w io.Writer, prefix string, json bool, debug bool) *DefaultLogger {
	level := &slog.LevelVar{}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := &DefaultLogger{level: level, log: slog.New(handler)}
	if prefix != "" {
		l.log = l.log.With("component", prefix)
	}
	l.SetDebug(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool {
	return l.level.Level() <= slog.LevelDebug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	if enabled {
		l.level.Set(slog.LevelDebug)
	} else {
		l.level.Set(slog.LevelInfo)
	}
}

func (l *DefaultLogger) Slog() *slog.Logger { return l.log }

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// LoggingModule installs a default logger as a resource.
type LoggingModule struct {
	Prefix string
	Debug  bool
	JSON   bool
	Output io.Writer // stderr when nil
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	out := m.Output
	if out == nil {
		out = os.Stderr
	}
	app.addResources(NewLogger(out, m.Prefix, m.JSON, m.Debug))
}

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// Logger returns the first Logger resource if present, otherwise a no-op logger.
// Never returns nil.
func (app *App) Logger() Logger {
	if app == nil || app.resources == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}

// slogger returns the slog logger behind the app's Logger, or nil when the
// logger is not slog-backed.
func (app *App) slogger() *slog.Logger {
	if l, ok := app.Logger().(interface{ Slog() *slog.Logger }); ok {
		return l.Slog()
	}
	return nil
}
