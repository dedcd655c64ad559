// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"errors"
	"fmt"
)

// ErrModNotFound reports that a provider does not know the requested mod.
// This is permanent: retrying the same lookup cannot succeed.
var ErrModNotFound = errors.New("mod not found")

// UnavailableError reports a transient provider failure (rate limit,
// outage, network timeout). Callers may retry.
type UnavailableError struct {
	// Provider is the provider name.
	Provider string
	// Err is the underlying transport or API error.
	Err error
}

// Error returns the provider name with the underlying failure.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err represents a failure worth retrying.
func IsTransient(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}

// UnknownProviderError reports that no client is registered for a
// provider name referenced by a manifest or lock file.
type UnknownProviderError struct {
	// Provider is the unregistered provider name.
	Provider string
}

// Error returns the unknown provider name.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no client registered for provider %q", e.Provider)
}
