package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the minimum severity a Logger writes.
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
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel parses a level name (debug, info, warn, error).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes timestamped component logs for one verification run to
// <log dir>/<run-id>-extverify.log, where the log directory defaults to
// ~/.extverify/logs.
//
// A nil *Logger is valid and discards everything, so components can hold an
// optional logger without guarding each call.
type Logger struct {
	runID     string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	level     Level
	closeOnce sync.Once
}

type runState struct {
	runID     string
	runIDOnce sync.Once

	// dir is the directory where log files are stored
	dir     string
	dirOnce sync.Once
	dirErr  error
}

var state = &runState{}

// SetDirectory overrides the log directory. It has no effect once a logger
// has been created.
func SetDirectory(dir string) {
	state.dirOnce.Do(func() {
		state.dir = dir
		state.dirErr = os.MkdirAll(dir, 0750)
		if state.dirErr != nil {
			state.dirErr = fmt.Errorf("failed to create log directory: %w", state.dirErr)
		}
	})
}

func getRunID() string {
	state.runIDOnce.Do(func() {
		state.runID = uuid.New().String()
	})
	return state.runID
}

func initLogDirectory() error {
	state.dirOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			state.dirErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		state.dir = filepath.Join(homeDir, ".extverify", "logs")
		if err := os.MkdirAll(state.dir, 0750); err != nil {
			state.dirErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return state.dirErr
}

// NewLogger creates a logger for a component writing at LevelInfo and above.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	runID := getRunID()
	logPath := filepath.Join(state.dir, fmt.Sprintf("%s-extverify.log", runID))

	// Components of one run share the file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		runID:     runID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
		level:     LevelInfo,
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		runID:     getRunID(),
		component: component,
		logger:    logger,
		level:     LevelInfo,
	}
}

// SetLevel sets the minimum level written.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) write(level Level, format string, v []interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.write(LevelDebug, format, v) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.write(LevelInfo, format, v) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.write(LevelWarn, format, v) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.write(LevelError, format, v) }

// With returns a logger for another component sharing this logger's file
// and level.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		runID:     l.runID,
		component: component,
		logger:    l.logger,
		logPath:   l.logPath,
		level:     l.level,
	}
}

// Writer returns an io.Writer that writes to the log file.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	if l.file != nil {
		return l.file
	}
	return os.Stderr
}

// RunID returns the run identifier shared by all loggers of the process.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// LogPath returns the path to the log file, empty in fallback mode.
func (l *Logger) LogPath() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// Close closes the log file. Safe to call multiple times. Loggers derived
// with With share the file and must not be used afterwards.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetRunID returns the run identifier of this process.
func GetRunID() string {
	return getRunID()
}

// GetLogDirectory returns the directory where logs are stored.
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return state.dir, nil
}
