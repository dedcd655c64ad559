// SPDX-License-Identifier: MPL-2.0

// Package assemble builds the distributable modpack archive from a lock
// file and a populated artifact store.
//
// Output is reproducible: entries are written in a canonical order with
// zeroed timestamps and fixed modes, so assembling the same lock file over
// the same artifacts yields byte-identical archives no matter when or
// where the build runs. The assembler never writes a partial archive; any
// missing or unverifiable artifact fails the build before output is
// committed.
package assemble

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/store"
)

// modDir is the archive directory holding mod artifacts.
const modDir = "mods"

// MissingArtifactError reports lock entries whose artifacts are absent
// from the store. The archive is not written.
type MissingArtifactError struct {
	// Refs lists the mods without a verified store entry, sorted.
	Refs []provider.ModRef
}

func (e *MissingArtifactError) Error() string {
	keys := make([]string, len(e.Refs))
	for i, r := range e.Refs {
		keys[i] = r.Key()
	}
	return fmt.Sprintf("%d artifacts missing from the store: %s", len(e.Refs), strings.Join(keys, ", "))
}

// Options configures an Assembler.
type Options struct {
	// Side selects which installation side the archive targets. Mods
	// marked for the opposite side are excluded. SideBoth (the default)
	// includes every mod.
	Side provider.Side
	// Logger receives per-entry progress events. Defaults to a discarding
	// logger.
	Logger *log.Logger
}

// Assembler writes modpack archives from verified store content.
type Assembler struct {
	store *store.Store
	opts  Options
}

// New creates an Assembler backed by st.
func New(st *store.Store, opts Options) *Assembler {
	if opts.Side == "" {
		opts.Side = provider.SideBoth
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Assembler{store: st, opts: opts}
}

// include reports whether a mod belongs in an archive for the target side.
func (a *Assembler) include(m lockfile.Mod) bool {
	switch a.opts.Side {
	case provider.SideClient:
		return m.Side != string(provider.SideServer)
	case provider.SideServer:
		return m.Side != string(provider.SideClient)
	default:
		return true
	}
}

// WriteArchive writes the archive for lf to w. The lock file itself is the
// first entry, followed by mod artifacts in canonical reference order.
func (a *Assembler) WriteArchive(w io.Writer, lf *lockfile.LockFile) error {
	mods := make([]lockfile.Mod, 0, len(lf.Mods))
	for _, m := range lf.Mods {
		if a.include(m) {
			mods = append(mods, m)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Ref().Key() < mods[j].Ref().Key()
	})

	if err := a.check(mods); err != nil {
		return err
	}

	lockData, err := lf.Encode()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	if err := writeEntry(zw, lockfile.DefaultFilename, zip.Deflate, lockData); err != nil {
		return err
	}
	for _, m := range mods {
		d, err := m.ParsedDigest()
		if err != nil {
			return fmt.Errorf("lock entry %s: %w", m.Ref(), err)
		}
		rc, err := a.store.Open(d)
		if err != nil {
			return fmt.Errorf("artifact for %s: %w", m.Ref(), err)
		}
		// Jars are already compressed; storing them keeps the archive
		// stable across compressor versions.
		err = copyEntry(zw, modDir+"/"+m.Filename, zip.Store, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", m.Filename, err)
		}
		a.opts.Logger.Debug("packed", "mod", m.Ref(), "file", m.Filename)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// Archive writes the archive to path atomically.
func (a *Assembler) Archive(path string, lf *lockfile.LockFile) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ffpack-pack-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()

	if err := a.WriteArchive(tmp, lf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// check verifies every included mod has a store entry and a unique
// filename before any output is produced.
func (a *Assembler) check(mods []lockfile.Mod) error {
	var missing []provider.ModRef
	filenames := make(map[string]provider.ModRef, len(mods))

	for _, m := range mods {
		if prev, dup := filenames[m.Filename]; dup {
			return fmt.Errorf("filename collision: %s and %s both pack as %q", prev, m.Ref(), m.Filename)
		}
		filenames[m.Filename] = m.Ref()

		d, err := m.ParsedDigest()
		if err != nil {
			return fmt.Errorf("lock entry %s: %w", m.Ref(), err)
		}
		if !a.store.Has(d) {
			missing = append(missing, m.Ref())
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i].Key() < missing[j].Key() })
		return &MissingArtifactError{Refs: missing}
	}
	return nil
}

// header builds a normalized entry header. The zero Modified time and
// fixed mode keep output independent of the build environment.
func header(name string, method uint16) *zip.FileHeader {
	h := &zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: time.Time{},
	}
	h.SetMode(0o644)
	return h
}

func writeEntry(zw *zip.Writer, name string, method uint16, data []byte) error {
	w, err := zw.CreateHeader(header(name, method))
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

func copyEntry(zw *zip.Writer, name string, method uint16, r io.Reader) error {
	w, err := zw.CreateHeader(header(name, method))
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}
