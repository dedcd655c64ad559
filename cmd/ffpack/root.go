// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ffpack/ffpack/internal/config"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/store"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "ffpack",
		Short: "A reproducible Minecraft modpack assembler",
		Long: TitleStyle.Render("ffpack") + SubtitleStyle.Render(" - A reproducible Minecraft modpack assembler") + `

ffpack turns a declarative CUE manifest into a byte-identical modpack
archive. It resolves compatible mod versions against your Minecraft
version and loader, downloads artifacts into a verified local store,
and pins every choice in a TOML lock file.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a manifest with: ffpack init mypack
  2. List the mods you want in ffpack.cue
  3. Build the pack with: ffpack build

` + SubtitleStyle.Render("Examples:") + `
  ffpack resolve            Pick versions and write the lock file
  ffpack build              Resolve, fetch, and package in one step
  ffpack rebuild            Repackage from the lock file, no resolver
  ffpack cache              Show the artifact store contents`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ffpack/config.cue)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(cacheCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the effective configuration. A broken config file is
// surfaced as a warning and defaults keep the command operational; only an
// explicitly requested --config file is a hard failure.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		if cfgFile != "" {
			return nil, renderIssue(err)
		}
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return config.DefaultConfig(), nil
	}
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
	return cfg, nil
}

// newLogger builds the CLI logger honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newRegistry wires the provider clients the CLI ships with.
func newRegistry() *provider.Registry {
	return provider.NewRegistry(
		provider.NewModrinth(provider.WithModrinthUserAgent("ffpack/" + Version)),
	)
}

// openStore opens the artifact store at its configured location.
func openStore(cfg *config.Config) (*store.Store, error) {
	dir, err := config.StoreDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("locating artifact store: %w", err)
	}
	st, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	return st, nil
}
