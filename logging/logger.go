package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/exports/config"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// levelOverride, when set, wins over config and environment.
	levelOverride *logrus.Level

	// stderr is the destination of every stderr-bound logger. Redirect swaps
	// it while the TUI owns the terminal.
	stderr = &switchWriter{w: os.Stderr}
)

type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

// Redirect sends the stderr output of all loggers, existing and future, to w
// until restore is called. Calls nest: restore reinstates the previous target.
func Redirect(w io.Writer) (restore func()) {
	stderr.mu.Lock()
	prev := stderr.w
	stderr.w = w
	stderr.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			stderr.mu.Lock()
			stderr.w = prev
			stderr.mu.Unlock()
		})
	}
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	// Load configuration from exports.yml
	cfg, err := config.LoadDefault()
	var logCfg Config
	if err == nil {
		// Use UnmarshalExtension to safely decode the logging part
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			// Log a warning if parsing fails, but continue with defaults
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	configure(logger, component, logCfg)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel changes the level of every logger, including ones created later.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	levelOverride = &level
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
}

// Reset drops all cached loggers.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Entry)
	levelOverride = nil
}

func configure(logger *logrus.Logger, component string, logCfg Config) {
	// Configure Level
	levelStr := "info" // Default level
	if os.Getenv("EXPORTS_LOG_LEVEL") != "" {
		levelStr = os.Getenv("EXPORTS_LOG_LEVEL")
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	if levelOverride != nil {
		level = *levelOverride
	}
	logger.SetLevel(level)

	// Configure Caller Reporting
	if os.Getenv("EXPORTS_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(formatterFor(logCfg.Format.Preset, logCfg.Format))

	// Configure Output Sinks
	var writers []io.Writer

	// The file sink is opt-in.
	if logCfg.File.Enabled {
		if file := openLogFile(logger, component, logCfg.File.Path); file != nil {
			writers = append(writers, file)
		}
	}

	if shouldLogToStderr(logger, logCfg.Format.StructuredToStderr) {
		writers = append(writers, stderr)
	}

	// Configure the output based on the number of writers
	switch len(writers) {
	case 0:
		// No writers configured - this is intentional in auto mode for interactive terminals
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

func formatterFor(preset string, format FormatConfig) logrus.Formatter {
	switch preset {
	case "json":
		return &logrus.JSONFormatter{}
	case "simple":
		return &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
	default:
		return &TextFormatter{Config: format}
	}
}

func openLogFile(logger *logrus.Logger, component, path string) io.Writer {
	if path != "" {
		path = expandPath(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		dateStr := time.Now().Format("2006-01-02")
		path = filepath.Join(home, ".local", "state", "exports", fmt.Sprintf("%s-%s.log", component, dateStr))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warnf("Failed to create log directory %s: %v", dir, err)
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Warnf("Failed to open log file %s: %v", path, err)
		return nil
	}
	return file
}

// shouldLogToStderr decides whether structured logs reach stderr. In "auto"
// mode that happens when debugging or when stderr is not a terminal, so
// interactive use stays quiet.
func shouldLogToStderr(logger *logrus.Logger, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		isDebug := os.Getenv("EXPORTS_DEBUG") == "1" || logger.GetLevel() >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		return isDebug || !isInteractive
	}
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
