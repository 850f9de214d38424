// Package logging provides the component logger shared by the generator
// service. A single root Logger is built in main and handed to every
// component, which derives its own child with Component and With.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level orders log severities.
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

// ParseLevel maps a config value to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink is shared between a root logger and all of its children so that
// writes from different components never interleave.
type sink struct {
	mu     sync.Mutex
	logger *log.Logger
	level  Level
}

// Logger writes lines of the form
//
//	[2006-01-02 15:04:05.000] [component] [LEVEL] message key=value ...
type Logger struct {
	sink      *sink
	sessionID string
	component string
	fields    map[string]string
}

// New creates a root logger writing to w. A nil writer means stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		sink:      &sink{logger: log.New(w, "", 0), level: level},
		sessionID: uuid.New().String(),
		component: "agentforge",
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// Component returns a child logger tagged with the given component name.
func (l *Logger) Component(name string) *Logger {
	child := l.clone()
	child.component = name
	return child
}

// With returns a child logger that appends key=value to every line.
func (l *Logger) With(key, value string) *Logger {
	child := l.clone()
	child.fields[key] = value
	return child
}

// SessionID identifies the running process in log output.
func (l *Logger) SessionID() string {
	return l.sessionID
}

func (l *Logger) Debugf(format string, v ...any) { l.write(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.write(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.write(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.write(LevelError, format, v...) }

func (l *Logger) clone() *Logger {
	fields := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		sink:      l.sink,
		sessionID: l.sessionID,
		component: l.component,
		fields:    fields,
	}
}

func (l *Logger) write(level Level, format string, v ...any) {
	if l == nil || l.sink == nil || level < l.sink.level {
		return
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] [%s] [%s] ",
		time.Now().Format("2006-01-02 15:04:05.000"), l.component, level))
	b.WriteString(fmt.Sprintf(format, v...))
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%q", k, l.fields[k]))
		}
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.logger.Println(b.String())
}
