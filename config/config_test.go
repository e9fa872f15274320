package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/exports/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// TestExtensions verifies that custom extensions in exports.yml are properly loaded
func TestExtensions(t *testing.T) {
	yamlContent := []byte(`
version: "1.0"
server:
  base_url: https://example.org/a/demo

logging:
  level: debug
  format:
    preset: json
`)

	cfg, err := LoadFromBytes(yamlContent, "yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if _, ok := cfg.Extensions["logging"]; !ok {
		t.Fatal("Expected 'logging' extension to be present")
	}
	if _, ok := cfg.Extensions["server"]; ok {
		t.Error("Known keys must not be captured as extensions")
	}

	type LogFormat struct {
		Preset string `yaml:"preset"`
	}
	type LogConfig struct {
		Level  string    `yaml:"level"`
		Format LogFormat `yaml:"format"`
	}
	var logCfg LogConfig
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		t.Fatalf("Failed to unmarshal logging extension: %v", err)
	}
	if logCfg.Level != "debug" || logCfg.Format.Preset != "json" {
		t.Errorf("Unexpected logging extension: %+v", logCfg)
	}

	var missing LogConfig
	if err := cfg.UnmarshalExtension("absent", &missing); err != nil {
		t.Errorf("Missing extension should not be an error: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(""), "yaml")
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}

	if cfg.Poll.Interval.Std() != 1500*time.Millisecond {
		t.Errorf("Expected default poll interval 1.5s, got %s", cfg.Poll.Interval.Std())
	}
	if cfg.Poll.Retries() != 5 {
		t.Errorf("Expected 5 retries by default, got %d", cfg.Poll.Retries())
	}
	if cfg.Serve.Addr != "127.0.0.1:8765" {
		t.Errorf("Unexpected default serve address %q", cfg.Serve.Addr)
	}
}

func TestExplicitZeroRetries(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("poll:\n  max_retries: 0\n"), "yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Poll.Retries() != 0 {
		t.Errorf("Expected explicit 0 retries to survive defaults, got %d", cfg.Poll.Retries())
	}
}

func TestTOML(t *testing.T) {
	tomlContent := []byte(`
version = "1.0"

[poll]
interval = "250ms"
max_polls = 40

[logging]
level = "warn"
`)

	cfg, err := LoadFromBytes(tomlContent, "toml")
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if cfg.Poll.Interval.Std() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", cfg.Poll.Interval.Std())
	}
	if cfg.Poll.MaxPolls != 40 {
		t.Errorf("Expected max_polls 40, got %d", cfg.Poll.MaxPolls)
	}
	if _, ok := cfg.Extensions["logging"]; !ok {
		t.Error("Expected TOML logging table to be captured as an extension")
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("EXPORTS_TEST_TOKEN", "s3cret")

	cfg, err := LoadFromBytes([]byte(`
server:
  csrf_token: ${EXPORTS_TEST_TOKEN}
  base_url: ${EXPORTS_TEST_UNSET:-http://localhost:8000}
`), "yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.CSRFToken != "s3cret" {
		t.Errorf("Expected expanded token, got %q", cfg.Server.CSRFToken)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default value, got %q", cfg.Server.BaseURL)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"unknown key", "poll:\n  intervall: 1s\n", errors.ErrCodeConfigInvalid},
		{"bad duration", "poll:\n  interval: fast\n", errors.ErrCodeConfigInvalid},
		{"relative url", "server:\n  base_url: example.org\n", errors.ErrCodeConfigValidation},
		{"negative retries", "poll:\n  max_retries: -1\n", errors.ErrCodeConfigValidation},
		{"backoff order", "poll:\n  backoff_initial: 5s\n  backoff_max: 1s\n", errors.ErrCodeConfigValidation},
		{"watch without file", "bootstrap:\n  watch: true\n", errors.ErrCodeConfigValidation},
		{"bad addr", "serve:\n  addr: nowhere\n", errors.ErrCodeConfigValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.content), "yaml")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestLayeredLoading(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	globalDir := filepath.Join(home, "exports")
	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(globalDir, "exports.yml"), `
server:
  base_url: https://global.example.org
  csrf_token: from-global
poll:
  interval: 3s
`)

	project := t.TempDir()
	writeFile(t, filepath.Join(project, "exports.yml"), `
server:
  base_url: https://project.example.org
`)
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	layered, err := LoadLayered(nested, testLogger())
	if err != nil {
		t.Fatalf("Failed to load layered config: %v", err)
	}

	final := layered.Final
	if final.Server.BaseURL != "https://project.example.org" {
		t.Errorf("Project layer should win, got %q", final.Server.BaseURL)
	}
	if final.Server.CSRFToken != "from-global" {
		t.Errorf("Global value should survive, got %q", final.Server.CSRFToken)
	}
	if final.Poll.Interval.Std() != 3*time.Second {
		t.Errorf("Expected global interval, got %s", final.Poll.Interval.Std())
	}
	if layered.FilePaths[SourceProject] != filepath.Join(project, "exports.yml") {
		t.Errorf("Unexpected project path %q", layered.FilePaths[SourceProject])
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("Missing config files should fall back to defaults: %v", err)
	}
	if cfg.Version != "1.0" {
		t.Errorf("Expected defaulted version, got %q", cfg.Version)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "exports.yml"))
	if !errors.Is(err, errors.ErrCodeConfigNotFound) {
		t.Errorf("Expected CONFIG_NOT_FOUND, got %v", err)
	}
}

func TestOverlay(t *testing.T) {
	t.Setenv("EXPORTS_POLL_INTERVAL", "2s")
	t.Setenv("EXPORTS_SERVER_BASE_URL", "https://env.example.org")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "127.0.0.1:1", "")
	flags.Int("max-retries", 9, "")
	if err := flags.Parse([]string{"--addr", "0.0.0.0:9000"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromBytes([]byte("poll:\n  interval: 1s\n  max_retries: 3\n"), "yaml")
	if err != nil {
		t.Fatal(err)
	}

	overlay := NewOverlay()
	if err := overlay.BindFlag("serve.addr", flags.Lookup("addr")); err != nil {
		t.Fatal(err)
	}
	if err := overlay.BindFlag("poll.max_retries", flags.Lookup("max-retries")); err != nil {
		t.Fatal(err)
	}
	if err := overlay.Apply(cfg); err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}

	if cfg.Poll.Interval.Std() != 2*time.Second {
		t.Errorf("Env should override file, got %s", cfg.Poll.Interval.Std())
	}
	if cfg.Server.BaseURL != "https://env.example.org" {
		t.Errorf("Unexpected base url %q", cfg.Server.BaseURL)
	}
	if cfg.Serve.Addr != "0.0.0.0:9000" {
		t.Errorf("Changed flag should override, got %q", cfg.Serve.Addr)
	}
	if cfg.Poll.Retries() != 3 {
		t.Errorf("Unchanged flag must not override, got %d", cfg.Poll.Retries())
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("poll.backoff_max"); got != "EXPORTS_POLL_BACKOFF_MAX" {
		t.Errorf("Unexpected env var %q", got)
	}
	if len(Keys()) == 0 {
		t.Error("Expected overlay keys")
	}
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	if err != nil {
		t.Fatalf("Failed to generate schema: %v", err)
	}
	schema := string(data)
	for _, want := range []string{`"base_url"`, `"interval"`, `"max_retries"`, `"addr"`} {
		if !strings.Contains(schema, want) {
			t.Errorf("Schema is missing %s", want)
		}
	}
	if strings.Contains(schema, "Extensions") {
		t.Error("Extensions must not appear in the schema")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
