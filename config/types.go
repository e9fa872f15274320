package config

//go:generate go run ../tools/schema-generator/ ../schema

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 1.5s or 250ms",
	}
}

// ServerConfig describes the export server the client talks to.
type ServerConfig struct {
	BaseURL   string   `yaml:"base_url,omitempty" toml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"description=Base URL of the export server (e.g. https://example.org/a/domain)"`
	CSRFToken string   `yaml:"csrf_token,omitempty" toml:"csrf_token,omitempty" json:"csrf_token,omitempty" jsonschema:"description=CSRF token sent as X-CSRFToken on every request"`
	Timeout   Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Per-request timeout"`
	RateLimit float64  `yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty" json:"rate_limit,omitempty" jsonschema:"minimum=0,description=Maximum requests per second (0 means unlimited)"`
	Burst     int      `yaml:"burst,omitempty" toml:"burst,omitempty" json:"burst,omitempty" jsonschema:"minimum=0,description=Requests allowed in a burst above rate_limit"`
}

// PollConfig tunes task-progress polling.
type PollConfig struct {
	Interval       Duration `yaml:"interval,omitempty" toml:"interval,omitempty" json:"interval,omitempty" jsonschema:"description=Pause between progress polls (default 1.5s)"`
	BackoffInitial Duration `yaml:"backoff_initial,omitempty" toml:"backoff_initial,omitempty" json:"backoff_initial,omitempty" jsonschema:"description=First retry delay after a failed poll"`
	BackoffMax     Duration `yaml:"backoff_max,omitempty" toml:"backoff_max,omitempty" json:"backoff_max,omitempty" jsonschema:"description=Upper bound for the retry delay"`
	MaxRetries     *int     `yaml:"max_retries,omitempty" toml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"minimum=0,description=Consecutive failed polls retried before a task is marked failed"`
	MaxPolls       int      `yaml:"max_polls,omitempty" toml:"max_polls,omitempty" json:"max_polls,omitempty" jsonschema:"minimum=0,description=Maximum polls per task before giving up (0 means no limit)"`
}

// BootstrapConfig selects where the initial record list comes from.
type BootstrapConfig struct {
	File     string   `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty" jsonschema:"description=JSON or YAML file holding the export descriptors; empty fetches them from the server"`
	Watch    bool     `yaml:"watch,omitempty" toml:"watch,omitempty" json:"watch,omitempty" jsonschema:"description=Reload the descriptor file when it changes"`
	Debounce Duration `yaml:"debounce,omitempty" toml:"debounce,omitempty" json:"debounce,omitempty" jsonschema:"description=Quiet period before a changed file is reloaded"`
}

// ServeConfig configures the HTTP view server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty" jsonschema:"description=Listen address for exports serve"`
}

// Config is the top-level exports configuration.
type Config struct {
	Version   string          `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Server    ServerConfig    `yaml:"server,omitempty" toml:"server,omitempty" json:"server" jsonschema:"description=Export server connection"`
	Poll      PollConfig      `yaml:"poll,omitempty" toml:"poll,omitempty" json:"poll" jsonschema:"description=Task progress polling"`
	Bootstrap BootstrapConfig `yaml:"bootstrap,omitempty" toml:"bootstrap,omitempty" json:"bootstrap" jsonschema:"description=Initial record list"`
	Serve     ServeConfig     `yaml:"serve,omitempty" toml:"serve,omitempty" json:"serve" jsonschema:"description=HTTP view server"`

	// Extensions captures all other top-level keys for extensibility,
	// e.g. the logging section.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = Duration(30 * time.Second)
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(1500 * time.Millisecond)
	}
	if c.Poll.BackoffInitial == 0 {
		c.Poll.BackoffInitial = Duration(500 * time.Millisecond)
	}
	if c.Poll.BackoffMax == 0 {
		c.Poll.BackoffMax = Duration(10 * time.Second)
	}
	if c.Poll.MaxRetries == nil {
		retries := 5
		c.Poll.MaxRetries = &retries
	}
	if c.Bootstrap.Debounce == 0 {
		c.Bootstrap.Debounce = Duration(100 * time.Millisecond)
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = "127.0.0.1:8765"
	}
}

// Retries returns poll.max_retries, or 0 when unset.
func (p PollConfig) Retries() int {
	if p.MaxRetries == nil {
		return 0
	}
	return *p.MaxRetries
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded exports.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	// Use mapstructure to decode the generic map[string]interface{}
	// into the strongly-typed target struct. We configure it to use
	// `yaml` tags for consistency.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration value.
type ConfigSource string

const (
	SourceDefault ConfigSource = "default"
	SourceGlobal  ConfigSource = "global"
	SourceProject ConfigSource = "project"
	SourceEnv     ConfigSource = "env"
	SourceFlag    ConfigSource = "flag"
)
