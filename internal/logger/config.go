package logger

import (
	"fmt"
	"strings"
)

// Level is the minimum severity a logger emits
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
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a config string to a Level, defaulting to info
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

// ConsoleConfig configures the always-on console tier
type ConsoleConfig struct {
	Color bool
}

// FileConfig configures the optional rotating-file tier
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config is the full logger configuration
type Config struct {
	Level   Level
	Console ConsoleConfig
	File    FileConfig
}

// DefaultConfig returns the configuration used when nothing is set:
// colored console at info level, no file tier.
func DefaultConfig() *Config {
	return &Config{
		Level:   LevelInfo,
		Console: ConsoleConfig{Color: true},
		File: FileConfig{
			Enabled:    false,
			Path:       "logs/autopost.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Validate checks the configuration for impossible values
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("logger config cannot be nil")
	}
	if c.Level < LevelDebug || c.Level > LevelError {
		return fmt.Errorf("invalid log level: %d", int(c.Level))
	}
	if c.File.Enabled {
		if c.File.Path == "" {
			return fmt.Errorf("file logging enabled but no path configured")
		}
		if c.File.MaxSizeMB <= 0 {
			return fmt.Errorf("file max size must be positive, got %d", c.File.MaxSizeMB)
		}
	}
	return nil
}
