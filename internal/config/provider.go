// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions names the explicit inputs of a configuration load.
type LoadOptions struct {
	// ConfigFilePath, when set, loads exactly this file instead of
	// searching the config directory.
	ConfigFilePath string
	// ConfigDirPath, when set, replaces the platform config directory.
	ConfigDirPath string
}

// Provider resolves a Config from load options. The interface exists so
// command code can be tested against a canned provider.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// NewProvider returns the file-backed Provider.
func NewProvider() Provider {
	return fileProvider{}
}

type fileProvider struct{}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
