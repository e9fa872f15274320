package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override file settings,
// e.g. EXPORTS_POLL_INTERVAL for poll.interval.
const EnvPrefix = "EXPORTS"

type overlayKey struct {
	key   string
	apply func(c *Config, v *viper.Viper, key string)
}

func durationKey(key string, field func(*Config) *Duration) overlayKey {
	return overlayKey{key, func(c *Config, v *viper.Viper, k string) {
		*field(c) = Duration(v.GetDuration(k))
	}}
}

var overlayKeys = []overlayKey{
	{"server.base_url", func(c *Config, v *viper.Viper, k string) { c.Server.BaseURL = v.GetString(k) }},
	{"server.csrf_token", func(c *Config, v *viper.Viper, k string) { c.Server.CSRFToken = v.GetString(k) }},
	durationKey("server.timeout", func(c *Config) *Duration { return &c.Server.Timeout }),
	{"server.rate_limit", func(c *Config, v *viper.Viper, k string) { c.Server.RateLimit = v.GetFloat64(k) }},
	{"server.burst", func(c *Config, v *viper.Viper, k string) { c.Server.Burst = v.GetInt(k) }},
	durationKey("poll.interval", func(c *Config) *Duration { return &c.Poll.Interval }),
	durationKey("poll.backoff_initial", func(c *Config) *Duration { return &c.Poll.BackoffInitial }),
	durationKey("poll.backoff_max", func(c *Config) *Duration { return &c.Poll.BackoffMax }),
	{"poll.max_retries", func(c *Config, v *viper.Viper, k string) {
		retries := v.GetInt(k)
		c.Poll.MaxRetries = &retries
	}},
	{"poll.max_polls", func(c *Config, v *viper.Viper, k string) { c.Poll.MaxPolls = v.GetInt(k) }},
	{"bootstrap.file", func(c *Config, v *viper.Viper, k string) { c.Bootstrap.File = v.GetString(k) }},
	{"bootstrap.watch", func(c *Config, v *viper.Viper, k string) { c.Bootstrap.Watch = v.GetBool(k) }},
	durationKey("bootstrap.debounce", func(c *Config) *Duration { return &c.Bootstrap.Debounce }),
	{"serve.addr", func(c *Config, v *viper.Viper, k string) { c.Serve.Addr = v.GetString(k) }},
}

// Overlay applies EXPORTS_* environment variables and changed command-line
// flags on top of a loaded configuration.
type Overlay struct {
	v *viper.Viper
}

// NewOverlay creates an Overlay reading the process environment.
func NewOverlay() *Overlay {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Overlay{v: v}
}

// BindFlag ties a config key to a command-line flag. The flag only wins when
// it was set explicitly.
func (o *Overlay) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return nil
	}
	return o.v.BindPFlag(key, flag)
}

// Apply writes every overridden key into cfg and validates the result.
func (o *Overlay) Apply(cfg *Config) error {
	for _, k := range overlayKeys {
		if o.v.IsSet(k.key) {
			k.apply(cfg, o.v, k.key)
		}
	}
	cfg.SetDefaults()
	return cfg.Validate()
}

// Keys returns the configuration keys an overlay can set.
func Keys() []string {
	keys := make([]string, 0, len(overlayKeys))
	for _, k := range overlayKeys {
		keys = append(keys, k.key)
	}
	return keys
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
