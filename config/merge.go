package config

// mergeConfigs merges override configuration into base. Zero values in
// override leave base untouched.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Merge server
	if override.Server.BaseURL != "" {
		result.Server.BaseURL = override.Server.BaseURL
	}
	if override.Server.CSRFToken != "" {
		result.Server.CSRFToken = override.Server.CSRFToken
	}
	if override.Server.Timeout != 0 {
		result.Server.Timeout = override.Server.Timeout
	}
	if override.Server.RateLimit != 0 {
		result.Server.RateLimit = override.Server.RateLimit
	}
	if override.Server.Burst != 0 {
		result.Server.Burst = override.Server.Burst
	}

	// Merge poll
	if override.Poll.Interval != 0 {
		result.Poll.Interval = override.Poll.Interval
	}
	if override.Poll.BackoffInitial != 0 {
		result.Poll.BackoffInitial = override.Poll.BackoffInitial
	}
	if override.Poll.BackoffMax != 0 {
		result.Poll.BackoffMax = override.Poll.BackoffMax
	}
	if override.Poll.MaxRetries != nil {
		retries := *override.Poll.MaxRetries
		result.Poll.MaxRetries = &retries
	}
	if override.Poll.MaxPolls != 0 {
		result.Poll.MaxPolls = override.Poll.MaxPolls
	}

	// Merge bootstrap
	if override.Bootstrap.File != "" {
		result.Bootstrap.File = override.Bootstrap.File
	}
	if override.Bootstrap.Watch {
		result.Bootstrap.Watch = true
	}
	if override.Bootstrap.Debounce != 0 {
		result.Bootstrap.Debounce = override.Bootstrap.Debounce
	}

	if override.Serve.Addr != "" {
		result.Serve.Addr = override.Serve.Addr
	}

	// Merge extensions key by key
	if len(override.Extensions) > 0 {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for k, v := range base.Extensions {
			merged[k] = v
		}
		for k, v := range override.Extensions {
			merged[k] = v
		}
		result.Extensions = merged
	}

	return &result
}
