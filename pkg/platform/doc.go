// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// It centralizes the runtime.GOOS name constants used when resolving
// platform-specific paths such as the configuration and artifact store
// directories.
package platform
