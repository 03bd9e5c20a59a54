// Package logger provides structured, component-tagged logging for the
// auto-post pipeline. A console tier is always available; an optional
// rotating-file tier mirrors every entry as a JSON line.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Component tags a log entry with the subsystem that produced it
type Component string

const (
	ComponentScanner   Component = "scanner"
	ComponentDrainer   Component = "drainer"
	ComponentProcessor Component = "processor"
	ComponentQueue     Component = "queue"
	ComponentStore     Component = "store"
	ComponentGenerator Component = "generator"
	ComponentMain      Component = "main"
)

// Logger is the logging interface used throughout the application.
// Variadic args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a logger tagged with a component
	WithComponent(component Component) Logger

	// WithFields returns a logger carrying additional fixed fields
	WithFields(fields map[string]interface{}) Logger

	// Close flushes and closes the file tier, if any
	Close() error
}

type multiLogger struct {
	cfg       *Config
	mu        *sync.Mutex
	console   io.Writer
	file      *lumberjack.Logger
	component Component
	fields    map[string]interface{}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = newFallback()
)

// SetDefault installs the process-wide default logger
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the process-wide default logger
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// newFallback builds a console-only logger used before SetDefault runs
func newFallback() Logger {
	l, _ := New(DefaultConfig())
	return l
}

// New creates a logger from config. The file tier is optional and its
// failure to open is not fatal; the console tier always works.
func New(cfg *Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	ml := &multiLogger{
		cfg:     cfg,
		mu:      &sync.Mutex{},
		console: os.Stdout,
		fields:  map[string]interface{}{},
	}

	if cfg.File.Enabled {
		ml.file = &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
	}

	return ml, nil
}

func (ml *multiLogger) Debug(msg string, args ...interface{}) { ml.log(LevelDebug, msg, args) }
func (ml *multiLogger) Info(msg string, args ...interface{})  { ml.log(LevelInfo, msg, args) }
func (ml *multiLogger) Warn(msg string, args ...interface{})  { ml.log(LevelWarn, msg, args) }
func (ml *multiLogger) Error(msg string, args ...interface{}) { ml.log(LevelError, msg, args) }

func (ml *multiLogger) WithComponent(component Component) Logger {
	clone := *ml
	clone.component = component
	return &clone
}

func (ml *multiLogger) WithFields(fields map[string]interface{}) Logger {
	clone := *ml
	merged := make(map[string]interface{}, len(ml.fields)+len(fields))
	for k, v := range ml.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	clone.fields = merged
	return &clone
}

func (ml *multiLogger) Close() error {
	if ml.file != nil {
		return ml.file.Close()
	}
	return nil
}

// entry is the JSON shape written to the file tier
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Component Component              `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (ml *multiLogger) log(level Level, msg string, args []interface{}) {
	if level < ml.cfg.Level {
		return
	}

	fields := ml.collectFields(args)
	now := time.Now().UTC()

	ml.mu.Lock()
	defer ml.mu.Unlock()

	fmt.Fprintln(ml.console, ml.formatConsole(now, level, msg, fields))

	if ml.file != nil {
		e := entry{
			Timestamp: now.Format(time.RFC3339Nano),
			Level:     level.String(),
			Component: ml.component,
			Message:   msg,
			Fields:    fields,
		}
		if data, err := json.Marshal(e); err == nil {
			ml.file.Write(append(data, '\n'))
		}
	}
}

// collectFields merges fixed fields with the call-site key/value args.
// A trailing key without a value is kept with a nil value rather than
// dropped, so a mistake at the call site is still visible in the logs.
func (ml *multiLogger) collectFields(args []interface{}) map[string]interface{} {
	if len(ml.fields) == 0 && len(args) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(ml.fields)+len(args)/2+1)
	for k, v := range ml.fields {
		fields[k] = v
	}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprintf("%v", args[i])
		if i+1 < len(args) {
			fields[key] = args[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

func (ml *multiLogger) formatConsole(now time.Time, level Level, msg string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(now.Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')

	label := fmt.Sprintf("%-5s", strings.ToUpper(level.String()))
	if ml.cfg.Console.Color {
		label = levelColors[level].Sprint(label)
	}
	b.WriteString(label)

	if ml.component != "" {
		b.WriteString(" [")
		b.WriteString(string(ml.component))
		b.WriteByte(']')
	}

	b.WriteByte(' ')
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	return b.String()
}
