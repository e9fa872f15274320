package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	Reset()
	defer Reset()

	logger := NewLogger("test-component")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
	if logger.Data["component"] != "test-component" {
		t.Errorf("Expected component to be 'test-component', got %v", logger.Data["component"])
	}
	if NewLogger("test-component") != logger {
		t.Error("Expected the cached logger for the same component")
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{Config: FormatConfig{}})

	entry := logger.WithField("component", "test")
	entry.WithField("export_id", "7").WithField("percent", 40).Info("Test message")

	output := buf.String()
	for _, want := range []string{"INFO", "test", "#7", "Test message", "percent=40"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
	if strings.Contains(output, "export_id=") {
		t.Errorf("Record id must not repeat in the field tail: %s", output)
	}
}

func TestTextFormatterFieldOrder(t *testing.T) {
	logger := logrus.New()
	entry := logrus.NewEntry(logger).WithFields(logrus.Fields{
		"zeta":  1,
		"alpha": "two words",
		"error": fmt.Errorf("reset"),
	})
	entry.Level = logrus.WarnLevel
	entry.Message = "Progress request failed"

	out, err := (&TextFormatter{Config: FormatConfig{DisableTimestamp: true}}).Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	line := string(out)
	alpha := strings.Index(line, `alpha="two words"`)
	errAt := strings.Index(line, "error=reset")
	zeta := strings.Index(line, "zeta=1")
	if alpha == -1 || errAt == -1 || zeta == -1 || !(alpha < errAt && errAt < zeta) {
		t.Errorf("Expected sorted, quoted fields, got %q", line)
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		level   logrus.Level
		want    []string
		notWant []string
	}{
		{
			name:   "default",
			config: FormatConfig{},
			level:  logrus.WarnLevel,
			want:   []string{"WARN", "poller", "message"},
		},
		{
			name:    "no timestamp or component",
			config:  FormatConfig{DisableTimestamp: true, DisableComponent: true},
			level:   logrus.InfoLevel,
			want:    []string{"INFO", "message"},
			notWant: []string{"poller", ":"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logrus.New()
			entry := logrus.NewEntry(logger).WithField("component", "poller")
			entry.Level = tt.level
			entry.Message = "message"

			out, err := (&TextFormatter{Config: tt.config}).Format(entry)
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(string(out), want) {
					t.Errorf("Expected %q in %q", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(string(out), notWant) {
					t.Errorf("Did not expect %q in %q", notWant, out)
				}
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		env  string
		cfg  string
		want logrus.Level
	}{
		{"", "", logrus.InfoLevel},
		{"debug", "", logrus.DebugLevel},
		{"", "warn", logrus.WarnLevel},
		{"error", "debug", logrus.ErrorLevel},
		{"nonsense", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.cfg, func(t *testing.T) {
			t.Setenv("EXPORTS_LOG_LEVEL", tt.env)
			logger := logrus.New()
			configure(logger, "levels", Config{Level: tt.cfg})
			if logger.GetLevel() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, logger.GetLevel())
			}
		})
	}
}

func TestSetLevelAppliesToCachedAndNewLoggers(t *testing.T) {
	Reset()
	defer Reset()

	before := NewLogger("before")
	SetLevel(logrus.DebugLevel)
	after := NewLogger("after")

	if before.Logger.GetLevel() != logrus.DebugLevel || after.Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug on both loggers, got %s and %s", before.Logger.GetLevel(), after.Logger.GetLevel())
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "exports.log")
	logger := logrus.New()
	configure(logger, "file", Config{
		Format: FormatConfig{Preset: "json", StructuredToStderr: "never"},
		File:   FileSinkConfig{Enabled: true, Path: path},
	})

	logger.WithField("export_id", "9").Info("written")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("Expected JSON log line, got %q", data)
	}
	if line["export_id"] != "9" || line["msg"] != "written" {
		t.Errorf("Unexpected log line: %v", line)
	}
}

func TestRedirectNests(t *testing.T) {
	logger := logrus.New()
	configure(logger, "redirect", Config{Format: FormatConfig{Preset: "simple", StructuredToStderr: "always"}})

	var outer, inner bytes.Buffer
	restoreOuter := Redirect(&outer)
	defer restoreOuter()

	restoreInner := Redirect(&inner)
	logger.Info("while the screen is taken")
	restoreInner()
	restoreInner()
	logger.Info("after restore")

	if !strings.Contains(inner.String(), "while the screen is taken") || strings.Contains(inner.String(), "after restore") {
		t.Errorf("Unexpected inner output %q", inner.String())
	}
	if !strings.Contains(outer.String(), "after restore") {
		t.Errorf("Expected the previous target back, got %q", outer.String())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/x.log"); got != filepath.Join(home, "x.log") {
		t.Errorf("Unexpected expansion %q", got)
	}
	if got := expandPath("/abs/x.log"); got != "/abs/x.log" {
		t.Errorf("Absolute paths must not change, got %q", got)
	}
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)
	p.Success("Serving export list")
	p.Field("exports", 4)
	p.Path("pidfile", "/tmp/serve.pid")
	p.Warn("no tasks running")
	p.Divider()

	out := buf.String()
	for _, want := range []string{"Serving export list", "exports:", "4", "pidfile:", "/tmp/serve.pid", "no tasks running"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != 5 {
		t.Errorf("Expected 5 lines, got %d", got)
	}
}
