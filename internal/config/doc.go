// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/ffpack/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/ffpack/config.cue on macOS, %APPDATA%\ffpack\config.cue
// on Windows). The package provides type-safe configuration access covering the artifact
// store location, fetch concurrency and retry behavior, resolution preferences, and UI
// settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
