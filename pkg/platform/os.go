// SPDX-License-Identifier: MPL-2.0

package platform

// Values of runtime.GOOS this tool distinguishes when resolving
// config and store paths.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)
