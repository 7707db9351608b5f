package log

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pkg/errors"
)

type Level int

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "NOTSET"
	}
}

// ParseLevel accepts the lower or upper case level name; "warning" is an
// alias for "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, errors.Errorf("unknown log level %q", s)
	}
}

type Logger interface {
	Logf(level Level, format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
}

type LeveledLogger struct {
	Level
	*log.Logger
}

func NewLogger(level Level, out io.Writer, prefix string) Logger {
	return LeveledLogger{
		Level:  level,
		Logger: log.New(out, prefix, log.LstdFlags),
	}
}

// WithPrefix returns a logger writing to the same output at the same level
// with a different prefix.
func WithPrefix(l Logger, prefix string) Logger {
	ll, ok := l.(LeveledLogger)
	if !ok {
		return l
	}
	return LeveledLogger{
		Level:  ll.Level,
		Logger: log.New(ll.Writer(), prefix, ll.Flags()),
	}
}

func (l LeveledLogger) Logf(level Level, format string, v ...interface{}) {
	if l.Level >= level {
		msg := fmt.Sprintf(format, v...)
		l.Printf("[%-7s] %s", level, msg)
	}
}

func (l LeveledLogger) Errorf(format string, v ...interface{}) { l.Logf(LevelError, format, v...) }
func (l LeveledLogger) Warnf(format string, v ...interface{})  { l.Logf(LevelWarn, format, v...) }
func (l LeveledLogger) Infof(format string, v ...interface{})  { l.Logf(LevelInfo, format, v...) }
func (l LeveledLogger) Debugf(format string, v ...interface{}) { l.Logf(LevelDebug, format, v...) }
func (l LeveledLogger) Tracef(format string, v ...interface{}) { l.Logf(LevelTrace, format, v...) }

// Discard drops every message.
var Discard Logger = LeveledLogger{Level: 0, Logger: log.New(io.Discard, "", 0)}
