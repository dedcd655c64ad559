// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize is the default size cap for user-supplied CUE files.
// Manifests and config files are small; anything beyond this is almost
// certainly a mistake or abuse.
const DefaultMaxFileSize int64 = 1 << 20

// Option customizes ParseAndDecode behavior.
type Option func(*parseOptions)

type parseOptions struct {
	filename    string
	maxFileSize int64
	concrete    bool
}

func defaultOptions() parseOptions {
	return parseOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *parseOptions) {
		o.filename = name
	}
}

// WithMaxFileSize overrides the input size cap.
func WithMaxFileSize(size int64) Option {
	return func(o *parseOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete controls whether validation requires concrete values.
// Defaults to true; disable for schemas whose fields are all optional.
func WithConcrete(concrete bool) Option {
	return func(o *parseOptions) {
		o.concrete = concrete
	}
}
