// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/ffpack/ffpack/pkg/fetch"
	"github.com/ffpack/ffpack/pkg/lockfile"
)

var (
	rebuildLock   string
	rebuildOutput string
	rebuildSide   string

	// rebuildCmd packages from an existing lock file without resolving
	rebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "Package the modpack from an existing lock file",
		Long: `Package the modpack from an existing lock file.

Skips the resolver entirely: every version, URL, and digest comes from
the lock file. Artifacts already in the local store are reused; missing
ones are fetched and verified against their pinned digests. This is the
path for reproducing a pack on another machine.`,
		RunE: runRebuild,
	}
)

func init() {
	rebuildCmd.Flags().StringVarP(&rebuildLock, "lock", "l", lockfile.DefaultFilename, "lock file to build from")
	rebuildCmd.Flags().StringVarP(&rebuildOutput, "output", "o", "", "output archive path (default <name>.zip)")
	rebuildCmd.Flags().StringVarP(&rebuildSide, "side", "s", "", "build for one side only (client or server)")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	lf, err := lockfile.Load(rebuildLock)
	if err != nil {
		return renderIssue(err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	fetcher := fetch.New(newRegistry(), st, fetchOptions(cfg))
	if _, err := fetcher.FetchLock(ctx, lf); err != nil {
		return renderIssue(err)
	}

	return assembleArchive(st, lf, rebuildOutput, rebuildSide)
}
