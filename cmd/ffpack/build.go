// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ffpack/ffpack/internal/config"
	"github.com/ffpack/ffpack/pkg/assemble"
	"github.com/ffpack/ffpack/pkg/fetch"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/store"
)

var (
	buildManifest string
	buildOutput   string
	buildSide     string

	// buildCmd runs the full pipeline: resolve, fetch, lock, package
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Resolve, fetch, and package the modpack",
		Long: `Resolve, fetch, and package the modpack.

Runs the full pipeline: resolves mod versions from the manifest,
downloads the artifacts into the verified local store, writes the lock
file, and assembles the package archive. Two builds from the same lock
file produce byte-identical archives.`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildManifest, "manifest", "m", "", "manifest file (default ./ffpack.cue)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output archive path (default <name>.zip)")
	buildCmd.Flags().StringVarP(&buildSide, "side", "s", "", "build for one side only (client or server)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	manifest, err := loadManifest(buildManifest)
	if err != nil {
		return err
	}

	lf, err := resolvePack(cmd, cfg, manifest)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	fetcher := fetch.New(newRegistry(), st, fetchOptions(cfg))
	if _, err := fetcher.FetchLock(ctx, lf); err != nil {
		return renderIssue(err)
	}

	lockPath := lockPathFor(manifest)
	if err := lf.Save(lockPath); err != nil {
		return renderIssue(err)
	}
	fmt.Printf("%s Wrote %s\n", SuccessStyle.Render("✓"), lockPath)

	return assembleArchive(st, lf, buildOutput, buildSide)
}

// fetchOptions maps the fetch section of the configuration onto fetcher
// options.
func fetchOptions(cfg *config.Config) fetch.Options {
	return fetch.Options{
		Workers:  cfg.Fetch.Workers,
		Attempts: cfg.Fetch.Attempts,
		Timeout:  time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		FailFast: cfg.Fetch.FailFast,
		Logger:   newLogger(),
	}
}

// assembleArchive packages a lock file into an archive at path, deriving
// a default path from the pack name when none is given.
func assembleArchive(st *store.Store, lf *lockfile.LockFile, path, side string) error {
	parsedSide, err := provider.ParseSide(side)
	if err != nil {
		return err
	}

	if path == "" {
		path = lf.Name
		if lf.PackVersion != "" {
			path += "-" + lf.PackVersion
		}
		if parsedSide != provider.SideBoth {
			path += "-" + string(parsedSide)
		}
		path += ".zip"
	}

	a := assemble.New(st, assemble.Options{Side: parsedSide, Logger: newLogger()})
	if err := a.Archive(path, lf); err != nil {
		return renderIssue(err)
	}
	fmt.Printf("%s Assembled %s (%d mods)\n", SuccessStyle.Render("✓"), RefStyle.Render(path), len(lf.Mods))
	return nil
}
