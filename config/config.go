package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/exports/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames lists the project config file names in lookup order.
var configNames = []string{
	"exports.yml",
	"exports.yaml",
	".exports.yml",
	".exports.yaml",
	"exports.toml",
}

// knownKeys are the top-level keys that are not extensions.
var knownKeys = map[string]bool{
	"version":   true,
	"server":    true,
	"poll":      true,
	"bootstrap": true,
	"serve":     true,
}

// Load reads, defaults and validates a single configuration file.
func Load(path string) (*Config, error) {
	cfg, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads configuration starting from the current directory:
// 1. Global config (~/.config/exports/exports.yml) - base layer
// 2. Project config (exports.yml, found walking up) - overrides global
// Missing files are not an error; defaults fill the gaps.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging and logging
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	layered, err := LoadLayered(startDir, logger)
	if err != nil {
		return nil, err
	}
	return layered.Final, nil
}

// LayeredConfig holds the raw configuration from each source file,
// as well as the final merged configuration, for analysis purposes.
type LayeredConfig struct {
	Default   *Config                 // Config with only default values applied.
	Global    *Config                 // Raw config from the global file.
	Project   *Config                 // Raw config from the project file.
	Final     *Config                 // The fully merged and validated config.
	FilePaths map[ConfigSource]string // Maps sources to their file paths.
}

// LoadLayered loads the global and project layers, keeping each one for
// inspection, and computes the merged result.
func LoadLayered(startDir string, logger *logrus.Logger) (*LayeredConfig, error) {
	layered := &LayeredConfig{FilePaths: make(map[ConfigSource]string)}

	defaults := &Config{}
	defaults.SetDefaults()
	layered.Default = defaults

	merged := &Config{}

	// 1. Global config is optional and a broken one is only a warning.
	if globalPath := getXDGConfigPath(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			globalConfig, err := readRaw(globalPath)
			if err != nil {
				logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
			} else {
				layered.Global = globalConfig
				layered.FilePaths[SourceGlobal] = globalPath
				merged = mergeConfigs(merged, globalConfig)
			}
		}
	}

	// 2. Project config is optional but must be valid when present.
	projectPath, err := FindConfigFile(startDir)
	switch {
	case err == nil:
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		projectConfig, err := readRaw(projectPath)
		if err != nil {
			return nil, err
		}
		layered.Project = projectConfig
		layered.FilePaths[SourceProject] = projectPath
		merged = mergeConfigs(merged, projectConfig)
	case errors.Is(err, errors.ErrCodeConfigNotFound):
		logger.Debug("No project configuration found, using defaults")
	default:
		return nil, err
	}

	final, err := finalize(merged)
	if err != nil {
		return nil, err
	}
	layered.Final = final

	// Log the merged config at debug level
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(final); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return layered, nil
}

// LoadFromBytes parses, defaults and validates configuration. format is
// "yaml" or "toml".
func LoadFromBytes(data []byte, format string) (*Config, error) {
	cfg, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.SetDefaults()

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err // Already returns structured error from validation
	}
	return cfg, nil
}

func readRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	cfg, err := parse(data, formatOf(path))
	if err != nil {
		if e, ok := err.(*errors.ExportError); ok {
			e.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte, format string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	switch format {
	case "toml":
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		// go-toml has no inline maps, so collect extensions separately.
		var all map[string]interface{}
		if err := toml.Unmarshal(expanded, &all); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		for k, v := range all {
			if knownKeys[k] {
				continue
			}
			if cfg.Extensions == nil {
				cfg.Extensions = make(map[string]interface{})
			}
			cfg.Extensions[k] = v
		}
	default:
		// Unknown top-level keys land in Extensions; unknown nested keys are typos.
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	return &cfg, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// FindConfigFile searches from startDir up to the filesystem root for an
// exports configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		// Check each possible config name
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// ConfigDir returns the global configuration directory.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "exports")
	}

	// Fall back to ~/.config
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "exports")
	}

	return ""
}

// getXDGConfigPath returns the global config file, preferring YAML over TOML.
func getXDGConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	tomlPath := filepath.Join(dir, "exports.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := os.Stat(filepath.Join(dir, "exports.yml")); os.IsNotExist(err) {
			return tomlPath
		}
	}
	return filepath.Join(dir, "exports.yml")
}
