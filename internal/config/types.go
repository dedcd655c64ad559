// SPDX-License-Identifier: MPL-2.0

package config

// FetchConfig controls the download orchestrator.
type FetchConfig struct {
	// Workers bounds concurrent downloads.
	Workers int `mapstructure:"workers"`
	// Attempts is the total tries per artifact, including the first.
	Attempts int `mapstructure:"attempts"`
	// TimeoutSeconds bounds a single download attempt. Zero disables the limit.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// FailFast stops the whole fetch on the first failure.
	FailFast bool `mapstructure:"fail_fast"`
}

// ResolveConfig controls version resolution.
type ResolveConfig struct {
	// Prefer selects candidate ordering: "version" or "recency".
	Prefer string `mapstructure:"prefer"`
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	// Verbose enables debug-level logging.
	Verbose bool `mapstructure:"verbose"`
}

// Config is the application configuration.
type Config struct {
	// StoreDir is the artifact store root. Empty selects the platform
	// cache directory.
	StoreDir string `mapstructure:"store_dir"`
	// Fetch configures the download orchestrator.
	Fetch FetchConfig `mapstructure:"fetch"`
	// Resolve configures version resolution.
	Resolve ResolveConfig `mapstructure:"resolve"`
	// UI configures terminal output.
	UI UIConfig `mapstructure:"ui"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Workers:        4,
			Attempts:       3,
			TimeoutSeconds: 120,
		},
		Resolve: ResolveConfig{
			Prefer: "version",
		},
	}
}
