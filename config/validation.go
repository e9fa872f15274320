package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/grovetools/exports/errors"
)

// Validate checks the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("server.base_url is not an absolute URL: %s", c.Server.BaseURL)).
				WithDetail("base_url", c.Server.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New(errors.ErrCodeConfigValidation, "server.base_url must use http or https").
				WithDetail("base_url", c.Server.BaseURL)
		}
	}

	if c.Server.Timeout < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "server.timeout cannot be negative")
	}
	if c.Poll.Interval <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "poll.interval must be positive")
	}
	if c.Poll.BackoffInitial <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "poll.backoff_initial must be positive")
	}
	if c.Poll.BackoffMax < c.Poll.BackoffInitial {
		return errors.New(errors.ErrCodeConfigValidation, "poll.backoff_max cannot be shorter than poll.backoff_initial").
			WithDetail("backoff_initial", c.Poll.BackoffInitial.Std().String()).
			WithDetail("backoff_max", c.Poll.BackoffMax.Std().String())
	}

	if c.Bootstrap.Watch && c.Bootstrap.File == "" {
		return errors.New(errors.ErrCodeConfigValidation, "bootstrap.watch requires bootstrap.file")
	}

	if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid serve.addr '%s'", c.Serve.Addr)).
			WithDetail("addr", c.Serve.Addr)
	}

	return nil
}
