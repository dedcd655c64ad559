// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ffpack/ffpack/internal/config"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/modpack"
	"github.com/ffpack/ffpack/pkg/resolver"
)

var (
	resolveManifest string
	resolveDryRun   bool

	// resolveCmd picks mod versions and writes the lock file
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Resolve mod versions and write the lock file",
		Long: `Resolve mod versions and write the lock file.

Reads the manifest, asks each provider for candidate releases, and
searches for one version per mod that satisfies every declared
constraint on the target Minecraft version and loader. The selection is
pinned in ffpack.lock.toml; no artifacts are downloaded.`,
		RunE: runResolve,
	}
)

func init() {
	resolveCmd.Flags().StringVarP(&resolveManifest, "manifest", "m", "", "manifest file (default ./ffpack.cue)")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "print the plan without writing the lock file")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	manifest, err := loadManifest(resolveManifest)
	if err != nil {
		return err
	}

	lf, err := resolvePack(cmd, cfg, manifest)
	if err != nil {
		return err
	}

	if resolveDryRun {
		return nil
	}

	lockPath := lockPathFor(manifest)
	if err := lf.Save(lockPath); err != nil {
		return renderIssue(err)
	}
	fmt.Printf("%s Wrote %s (%d mods)\n", SuccessStyle.Render("✓"), lockPath, len(lf.Mods))
	return nil
}

// resolvePack runs the resolver for a manifest and prints the plan.
func resolvePack(cmd *cobra.Command, cfg *config.Config, manifest *modpack.Manifest) (*lockfile.LockFile, error) {
	ctx := cmd.Context()

	roots, err := manifest.RootConstraints()
	if err != nil {
		return nil, err
	}

	r := resolver.New(newRegistry(), resolver.Options{
		Preference: resolver.Preference(cfg.Resolve.Prefer),
		Logger:     newLogger(),
	})

	platform := manifest.Platform()
	fmt.Printf("Resolving %s for %s...\n", RefStyle.Render(manifest.Name), platform)

	graph, err := r.Resolve(ctx, roots, platform)
	if err != nil {
		return nil, renderIssue(err)
	}

	for _, c := range graph.Candidates() {
		fmt.Printf("  %s %s %s\n",
			SuccessStyle.Render("✓"),
			RefStyle.Render(c.Ref.Key()),
			c.Version)
	}

	lf := lockfile.FromGraph(manifest.Name, manifest.Version, graph)
	applyManifestSides(lf, manifest)
	return lf, nil
}
