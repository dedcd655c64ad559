// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects config directory lookup, for tests.
// os.UserHomeDir() ignores a HOME override on some platforms, so tests
// cannot steer the lookup through the environment alone.
var configDirOverride string

// SetConfigDirOverride points config lookup at dir instead of the
// platform default. Test-only.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset restores the default lookup. Call from test cleanup.
func Reset() {
	configDirOverride = ""
}
