// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ffpack/ffpack/internal/issue"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/modpack"
)

// loadManifest locates and parses the pack manifest. An empty path means
// the default manifest in the current directory.
func loadManifest(path string) (*modpack.Manifest, error) {
	if path == "" {
		found, err := modpack.Find(".")
		if err != nil {
			if rendered, renderErr := issue.Get(issue.ManifestNotFoundId).Render("dark"); renderErr == nil {
				fmt.Fprint(os.Stderr, rendered)
			}
			return nil, err
		}
		path = found
	}

	m, err := modpack.Parse(path)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ManifestParseErrorId).Render("dark"); renderErr == nil {
			fmt.Fprint(os.Stderr, rendered)
		}
		return nil, err
	}
	return m, nil
}

// lockPathFor returns the lock file path next to the manifest.
func lockPathFor(m *modpack.Manifest) string {
	dir := filepath.Dir(m.FilePath)
	return filepath.Join(dir, lockfile.DefaultFilename)
}

// applyManifestSides overrides lock file side markers with the manifest's
// explicit declarations. Providers sometimes mark a mod "both" when the
// pack author knows it is only wanted on one side.
func applyManifestSides(lf *lockfile.LockFile, m *modpack.Manifest) {
	for _, mod := range m.Mods {
		if mod.Side == "" {
			continue
		}
		for i := range lf.Mods {
			if lf.Mods[i].Ref() == mod.Ref() {
				lf.Mods[i].Side = mod.Side
			}
		}
	}
}
