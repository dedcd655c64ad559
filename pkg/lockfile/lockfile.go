// SPDX-License-Identifier: MPL-2.0

// Package lockfile reads and writes the TOML lock file that pins a resolved
// mod graph: one exact version, download location, and content digest per
// mod. Encoding is canonical (mods sorted by reference, stable field
// layout), so a lock file built from the same graph is byte-identical
// across runs. Decoding tolerates unknown keys so older tools can read
// files written by newer ones.
package lockfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/ffpack/ffpack/pkg/digest"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/resolver"
)

// FormatVersion is the lock file schema version this codec writes.
const FormatVersion = "1"

// DefaultFilename is the conventional lock file name next to the manifest.
const DefaultFilename = "ffpack.lock.toml"

// ErrLockNotFound reports that no lock file exists at the given path.
var ErrLockNotFound = errors.New("lock file not found")

// CorruptError reports a lock file that parsed as TOML but violates the
// schema: wrong format version, missing required fields, or an invalid
// digest.
type CorruptError struct {
	// Path is the file that failed validation ("" for in-memory decodes).
	Path string
	// Reason describes the violation.
	Reason string
	// Err is the underlying parse error, if any.
	Err error
}

func (e *CorruptError) Error() string {
	msg := "corrupt lock file"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Platform is the pinned target platform.
type Platform struct {
	Minecraft     string `toml:"minecraft"`
	Loader        string `toml:"loader"`
	LoaderVersion string `toml:"loader_version,omitempty"`
}

// Mod is one pinned mod entry.
type Mod struct {
	Provider string `toml:"provider"`
	ID       string `toml:"id"`
	Name     string `toml:"name,omitempty"`
	Version  string `toml:"version"`
	Filename string `toml:"filename"`
	Side     string `toml:"side"`
	URL      string `toml:"url"`
	Size     int64  `toml:"size,omitempty"`
	Digest   string `toml:"digest"`
}

// Ref returns the mod's provider reference.
func (m Mod) Ref() provider.ModRef {
	return provider.ModRef{Provider: m.Provider, ID: m.ID}
}

// ParsedDigest parses the pinned digest.
func (m Mod) ParsedDigest() (digest.Digest, error) {
	return digest.Parse(m.Digest)
}

// DownloadSpec reconstructs the download descriptor for refetching.
func (m Mod) DownloadSpec() (provider.DownloadSpec, error) {
	d, err := m.ParsedDigest()
	if err != nil {
		return provider.DownloadSpec{}, err
	}
	return provider.DownloadSpec{
		URL:      m.URL,
		Filename: m.Filename,
		Size:     m.Size,
		Digest:   d,
	}, nil
}

// LockFile is the full pinned state of one pack build.
type LockFile struct {
	Version     string   `toml:"version"`
	Name        string   `toml:"name"`
	PackVersion string   `toml:"pack_version,omitempty"`
	Platform    Platform `toml:"platform"`
	Mods        []Mod    `toml:"mods"`
}

// FromGraph pins a resolved graph. Mods appear in canonical reference
// order regardless of resolution order.
func FromGraph(name, packVersion string, g *resolver.Graph) *LockFile {
	lf := &LockFile{
		Version:     FormatVersion,
		Name:        name,
		PackVersion: packVersion,
		Platform: Platform{
			Minecraft:     g.Platform.Minecraft,
			Loader:        g.Platform.Loader,
			LoaderVersion: g.Platform.LoaderVersion,
		},
	}
	for _, c := range g.Candidates() {
		side := c.Side
		if side == "" {
			side = provider.SideBoth
		}
		lf.Mods = append(lf.Mods, Mod{
			Provider: c.Ref.Provider,
			ID:       c.Ref.ID,
			Name:     c.DisplayName,
			Version:  c.Version,
			Filename: c.Download.Filename,
			Side:     string(side),
			URL:      c.Download.URL,
			Size:     c.Download.Size,
			Digest:   c.Download.Digest.String(),
		})
	}
	return lf
}

// TargetPlatform returns the pinned platform as the provider model.
func (lf *LockFile) TargetPlatform() provider.Platform {
	return provider.Platform{
		Minecraft:     lf.Platform.Minecraft,
		Loader:        lf.Platform.Loader,
		LoaderVersion: lf.Platform.LoaderVersion,
	}
}

// normalize sorts mods into canonical order.
func (lf *LockFile) normalize() {
	sort.Slice(lf.Mods, func(i, j int) bool {
		return lf.Mods[i].Ref().Key() < lf.Mods[j].Ref().Key()
	})
}

// validate checks the schema constraints Decode relies on.
func (lf *LockFile) validate(path string) error {
	if lf.Version != FormatVersion {
		return &CorruptError{Path: path, Reason: fmt.Sprintf("unsupported format version %q", lf.Version)}
	}
	if len(lf.Platform.Minecraft) == 0 {
		return &CorruptError{Path: path, Reason: "missing platform.minecraft"}
	}
	seen := make(map[string]struct{}, len(lf.Mods))
	for i, m := range lf.Mods {
		if m.Provider == "" || m.ID == "" {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("mod %d is missing provider or id", i)}
		}
		key := m.Ref().Key()
		if _, dup := seen[key]; dup {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("duplicate mod entry %s", key)}
		}
		seen[key] = struct{}{}
		if m.Version == "" {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("mod %s has no pinned version", key)}
		}
		if m.Filename == "" {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("mod %s has no filename", key)}
		}
		if _, err := digest.Parse(m.Digest); err != nil {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("mod %s has an invalid digest", key), Err: err}
		}
		if _, err := provider.ParseSide(m.Side); err != nil {
			return &CorruptError{Path: path, Reason: fmt.Sprintf("mod %s has an invalid side", key), Err: err}
		}
	}
	return nil
}

// Encode renders the lock file in canonical form. Encoding the result of
// Decode reproduces the canonical input byte for byte.
func (lf *LockFile) Encode() ([]byte, error) {
	lf.normalize()

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(lf); err != nil {
		return nil, fmt.Errorf("failed to encode lock file: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates lock file bytes. Unknown keys are ignored.
func Decode(data []byte) (*LockFile, error) {
	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, &CorruptError{Reason: "invalid TOML", Err: err}
	}
	if err := lf.validate(""); err != nil {
		return nil, err
	}
	lf.normalize()
	return &lf, nil
}

// Load reads and validates the lock file at path.
func Load(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrLockNotFound)
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}
	lf, err := Decode(data)
	var corrupt *CorruptError
	if errors.As(err, &corrupt) {
		corrupt.Path = path
		return nil, corrupt
	}
	return lf, err
}

// Save writes the lock file atomically: the content lands under its final
// path only after a complete write, via a rename from a sibling temp file.
func (lf *LockFile) Save(path string) error {
	data, err := lf.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ffpack-lock-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary lock file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush lock file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set lock file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace lock file: %w", err)
	}
	return nil
}
