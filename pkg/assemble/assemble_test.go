// SPDX-License-Identifier: MPL-2.0

package assemble

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ffpack/ffpack/pkg/digest"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/store"
)

// fixture returns a lock file and a store holding every pinned artifact.
func fixture(t *testing.T) (*lockfile.LockFile, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}

	lf := &lockfile.LockFile{
		Version: lockfile.FormatVersion,
		Name:    "skyfall",
		Platform: lockfile.Platform{
			Minecraft: "1.20.1",
			Loader:    "quilt",
		},
	}
	mods := []struct {
		id, version, side string
	}{
		{"sodium", "0.5.3", "client"},
		{"lithium", "2.0.0", "both"},
		{"servux", "1.1.0", "server"},
	}
	for _, m := range mods {
		content := []byte(m.id + "-" + m.version + " jar bytes")
		d, err := digest.FromBytes(digest.SHA256, content)
		if err != nil {
			t.Fatalf("FromBytes() error = %v", err)
		}
		if _, err := st.Put(bytes.NewReader(content), d); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		lf.Mods = append(lf.Mods, lockfile.Mod{
			Provider: "test",
			ID:       m.id,
			Version:  m.version,
			Filename: m.id + "-" + m.version + ".jar",
			Side:     m.side,
			URL:      "static://" + m.id,
			Digest:   d.String(),
		})
	}
	return lf, st
}

func entryNames(t *testing.T, archive []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	return names
}

func TestWriteArchiveLayout(t *testing.T) {
	lf, st := fixture(t)
	a := New(st, Options{})

	var buf bytes.Buffer
	if err := a.WriteArchive(&buf, lf); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}

	want := []string{
		"ffpack.lock.toml",
		"mods/lithium-2.0.0.jar",
		"mods/servux-1.1.0.jar",
		"mods/sodium-0.5.3.jar",
	}
	got := entryNames(t, buf.Bytes())
	if len(got) != len(want) {
		t.Fatalf("archive entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteArchiveDeterministic(t *testing.T) {
	lf, st := fixture(t)
	a := New(st, Options{})

	var first, second bytes.Buffer
	if err := a.WriteArchive(&first, lf); err != nil {
		t.Fatalf("first WriteArchive() error = %v", err)
	}
	if err := a.WriteArchive(&second, lf); err != nil {
		t.Fatalf("second WriteArchive() error = %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two builds of the same lock file differ")
	}
}

func TestWriteArchiveReproducibleFromColdStore(t *testing.T) {
	lf, st := fixture(t)

	var warm bytes.Buffer
	if err := New(st, Options{}).WriteArchive(&warm, lf); err != nil {
		t.Fatalf("warm WriteArchive() error = %v", err)
	}

	// Rebuild the store from scratch, as a fresh machine would after
	// refetching, and assemble again.
	cold, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	for _, m := range lf.Mods {
		content := []byte(m.ID + "-" + m.Version + " jar bytes")
		d, err := m.ParsedDigest()
		if err != nil {
			t.Fatalf("ParsedDigest() error = %v", err)
		}
		if _, err := cold.Put(bytes.NewReader(content), d); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	var rebuilt bytes.Buffer
	if err := New(cold, Options{}).WriteArchive(&rebuilt, lf); err != nil {
		t.Fatalf("cold WriteArchive() error = %v", err)
	}
	if !bytes.Equal(warm.Bytes(), rebuilt.Bytes()) {
		t.Error("archive rebuilt from a cold store differs from the original")
	}
}

func TestWriteArchiveSideFiltering(t *testing.T) {
	tests := []struct {
		side provider.Side
		want []string
	}{
		{
			side: provider.SideClient,
			want: []string{"ffpack.lock.toml", "mods/lithium-2.0.0.jar", "mods/sodium-0.5.3.jar"},
		},
		{
			side: provider.SideServer,
			want: []string{"ffpack.lock.toml", "mods/lithium-2.0.0.jar", "mods/servux-1.1.0.jar"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.side), func(t *testing.T) {
			lf, st := fixture(t)
			var buf bytes.Buffer
			if err := New(st, Options{Side: tt.side}).WriteArchive(&buf, lf); err != nil {
				t.Fatalf("WriteArchive() error = %v", err)
			}
			got := entryNames(t, buf.Bytes())
			if len(got) != len(tt.want) {
				t.Fatalf("entries = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWriteArchiveMissingArtifact(t *testing.T) {
	lf, st := fixture(t)
	if err := st.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	var buf bytes.Buffer
	err := New(st, Options{}).WriteArchive(&buf, lf)
	var missing *MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("WriteArchive() error = %v, want *MissingArtifactError", err)
	}
	if len(missing.Refs) != 3 {
		t.Errorf("missing refs = %d, want 3", len(missing.Refs))
	}
	if buf.Len() != 0 {
		t.Errorf("WriteArchive() wrote %d bytes despite missing artifacts, want 0", buf.Len())
	}
	if !strings.Contains(missing.Error(), "test:lithium") {
		t.Errorf("Error() = %q, want mention of test:lithium", missing.Error())
	}
}

func TestWriteArchiveFilenameCollision(t *testing.T) {
	lf, st := fixture(t)
	lf.Mods[1].Filename = lf.Mods[0].Filename

	var buf bytes.Buffer
	err := New(st, Options{}).WriteArchive(&buf, lf)
	if err == nil || !strings.Contains(err.Error(), "collision") {
		t.Errorf("WriteArchive() error = %v, want filename collision", err)
	}
}

func TestWriteArchiveLockRoundTrips(t *testing.T) {
	lf, st := fixture(t)
	var buf bytes.Buffer
	if err := New(st, Options{}).WriteArchive(&buf, lf); err != nil {
		t.Fatalf("WriteArchive() error = %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	rc, err := zr.Open(lockfile.DefaultFilename)
	if err != nil {
		t.Fatalf("Open(lock) error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	embedded, err := lockfile.Decode(data)
	if err != nil {
		t.Fatalf("Decode(embedded lock) error = %v", err)
	}
	if embedded.Name != lf.Name || len(embedded.Mods) != len(lf.Mods) {
		t.Errorf("embedded lock = %q with %d mods, want %q with %d",
			embedded.Name, len(embedded.Mods), lf.Name, len(lf.Mods))
	}
}

func TestArchiveAtomic(t *testing.T) {
	lf, st := fixture(t)
	path := filepath.Join(t.TempDir(), "skyfall.zip")

	if err := New(st, Options{}).Archive(path, lf); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	zr.Close()

	// A failing build must not disturb an existing archive.
	if err := st.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := New(st, Options{}).Archive(path, lf); err == nil {
		t.Fatal("Archive() error = nil with empty store, want failure")
	}
	if _, err := zip.OpenReader(path); err != nil {
		t.Errorf("existing archive was corrupted by a failed build: %v", err)
	}
}
