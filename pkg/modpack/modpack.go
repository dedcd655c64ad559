// SPDX-License-Identifier: MPL-2.0

// Package modpack loads and validates pack manifests.
//
// A manifest is a CUE file (conventionally ffpack.cue) declaring the pack's
// identity, target platform, and requested mods. Parsing unifies the user's
// file with the embedded schema, so structural errors surface with CUE's
// field-level positions before any resolution work starts.
package modpack

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ffpack/ffpack/pkg/cueutil"
	"github.com/ffpack/ffpack/pkg/provider"
)

//go:embed modpack_schema.cue
var manifestSchema string

// DefaultFilename is the conventional manifest name.
const DefaultFilename = "ffpack.cue"

// Loader is the pack's target mod loader.
type Loader struct {
	// Name is "quilt", "fabric", or "forge".
	Name string `json:"name"`
	// Version is the loader's own version (optional).
	Version string `json:"version,omitempty"`
}

// Mod is one requested mod.
type Mod struct {
	// Provider names the metadata source.
	Provider string `json:"provider"`
	// ID is the provider-scoped identifier.
	ID string `json:"id"`
	// Range constrains acceptable versions. Empty means any.
	Range string `json:"range,omitempty"`
	// Name is a display name override (optional).
	Name string `json:"name,omitempty"`
	// Side restricts where the mod is installed (optional, defaults to both).
	Side string `json:"side,omitempty"`
}

// Ref returns the mod's provider reference.
func (m Mod) Ref() provider.ModRef {
	return provider.ModRef{Provider: m.Provider, ID: m.ID}
}

// Manifest is a parsed pack manifest.
type Manifest struct {
	// Name identifies the pack.
	Name string `json:"name"`
	// Version is the pack's own version (optional).
	Version string `json:"version,omitempty"`
	// Description summarizes the pack (optional).
	Description string `json:"description,omitempty"`
	// Author names the maintainer (optional).
	Author string `json:"author,omitempty"`
	// Minecraft is the target game version.
	Minecraft string `json:"minecraft"`
	// Loader is the target mod loader.
	Loader Loader `json:"loader"`
	// Mods are the requested mods.
	Mods []Mod `json:"mods"`

	// FilePath records where the manifest was loaded from (not in CUE).
	FilePath string `json:"-"`
}

// Platform returns the manifest's target platform.
func (m *Manifest) Platform() provider.Platform {
	return provider.Platform{
		Minecraft:     m.Minecraft,
		Loader:        m.Loader.Name,
		LoaderVersion: m.Loader.Version,
	}
}

// RootConstraints converts the requested mods into resolver root
// constraints. Manifest-level mods are always required.
func (m *Manifest) RootConstraints() ([]provider.Constraint, error) {
	roots := make([]provider.Constraint, 0, len(m.Mods))
	for _, mod := range m.Mods {
		c, err := provider.NewConstraint(mod.Ref(), mod.Range, provider.KindRequired)
		if err != nil {
			return nil, fmt.Errorf("manifest mod %s: %w", mod.Ref(), err)
		}
		roots = append(roots, c)
	}
	return roots, nil
}

// SideOf returns the manifest's side marker for ref, defaulting to both.
func (m *Manifest) SideOf(ref provider.ModRef) provider.Side {
	for _, mod := range m.Mods {
		if mod.Ref() == ref {
			side, err := provider.ParseSide(mod.Side)
			if err == nil {
				return side
			}
		}
	}
	return provider.SideBoth
}

// Parse reads and parses the manifest at path.
func Parse(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest at %s: %w", path, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses manifest content from bytes. The path is used only for
// error positions.
func ParseBytes(data []byte, path string) (*Manifest, error) {
	result, err := cueutil.ParseAndDecodeString[Manifest](
		manifestSchema,
		data,
		"#Manifest",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}
	manifest := *result.Value
	manifest.FilePath = path

	seen := make(map[provider.ModRef]struct{}, len(manifest.Mods))
	for i, mod := range manifest.Mods {
		if _, dup := seen[mod.Ref()]; dup {
			return nil, fmt.Errorf("manifest at %s lists %s twice", path, mod.Ref())
		}
		seen[mod.Ref()] = struct{}{}
		// Ranges and sides pass CUE as plain strings; validate them here
		// so errors point at the offending entry.
		if _, err := provider.NewConstraint(mod.Ref(), mod.Range, provider.KindRequired); err != nil {
			return nil, fmt.Errorf("manifest mods[%d]: %w", i, err)
		}
	}
	return &manifest, nil
}

// Find locates the manifest in dir, returning its path.
func Find(dir string) (string, error) {
	path := filepath.Join(dir, DefaultFilename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no %s found in %s: %w", DefaultFilename, dir, err)
	}
	return path, nil
}

// Starter renders a minimal manifest for a new pack.
func Starter(name, minecraft, loader string) []byte {
	return []byte(fmt.Sprintf(`name: %q
version: "0.1.0"
minecraft: %q
loader: {
	name: %q
}
mods: [
	// {provider: "modrinth", id: "sodium", range: "^0.5", side: "client"},
]
`, name, minecraft, loader))
}
