// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/resolver"
)

func sampleLock() *LockFile {
	return &LockFile{
		Version:     FormatVersion,
		Name:        "skyfall",
		PackVersion: "0.3.0",
		Platform: Platform{
			Minecraft:     "1.20.1",
			Loader:        "quilt",
			LoaderVersion: "0.21.0",
		},
		Mods: []Mod{
			{
				Provider: "modrinth",
				ID:       "sodium",
				Name:     "Sodium",
				Version:  "0.5.3",
				Filename: "sodium-0.5.3.jar",
				Side:     "client",
				URL:      "https://cdn.example/sodium-0.5.3.jar",
				Size:     1234,
				Digest:   "sha256:" + strings.Repeat("ab", 32),
			},
			{
				Provider: "curseforge",
				ID:       "1234",
				Version:  "2.0.0",
				Filename: "lithium-2.0.0.jar",
				Side:     "both",
				URL:      "https://cdn.example/lithium-2.0.0.jar",
				Digest:   "blake3:" + strings.Repeat("cd", 32),
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleLock()

	data, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	reencoded, err := decoded.Encode()
	if err != nil {
		t.Fatalf("re-Encode() error = %v", err)
	}
	if !bytes.Equal(data, reencoded) {
		t.Errorf("round trip is not byte-identical:\nfirst:\n%s\nsecond:\n%s", data, reencoded)
	}
}

func TestEncodeSortsMods(t *testing.T) {
	lf := sampleLock()
	// sampleLock lists modrinth:sodium before curseforge:1234; canonical
	// order is by reference key.
	data, err := lf.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	curse := bytes.Index(data, []byte(`id = '1234'`))
	sodium := bytes.Index(data, []byte(`id = 'sodium'`))
	if curse == -1 || sodium == -1 {
		t.Fatalf("Encode() output is missing mod entries:\n%s", data)
	}
	if curse > sodium {
		t.Errorf("Encode() did not sort mods by reference key:\n%s", data)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := sampleLock().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b, err := sampleLock().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Encode() output differs between identical inputs")
	}
}

func TestDecodeToleratesUnknownKeys(t *testing.T) {
	data, err := sampleLock().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	extended := append([]byte("future_field = 'from a newer tool'\n"), data...)

	lf, err := Decode(extended)
	if err != nil {
		t.Fatalf("Decode() with unknown key error = %v", err)
	}
	if len(lf.Mods) != 2 {
		t.Errorf("Decode() mods = %d, want 2", len(lf.Mods))
	}
}

func TestDecodeCorrupt(t *testing.T) {
	base := sampleLock()
	valid, err := base.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not toml", []byte("{this is not toml")},
		{"wrong version", bytes.Replace(valid, []byte(`version = '1'`), []byte(`version = '99'`), 1)},
		{"bad digest", bytes.Replace(valid, []byte("sha256:"), []byte("md5:"), 1)},
		{"bad side", bytes.Replace(valid, []byte(`side = 'client'`), []byte(`side = 'proxy'`), 1)},
		{"missing filename", bytes.Replace(valid, []byte(`filename = 'sodium-0.5.3.jar'`), []byte(`filename = ''`), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var corrupt *CorruptError
			if !errors.As(err, &corrupt) {
				t.Errorf("Decode() error = %v, want *CorruptError", err)
			}
		})
	}
}

func TestDecodeRejectsDuplicateMods(t *testing.T) {
	lf := sampleLock()
	lf.Mods = append(lf.Mods, lf.Mods[0])
	data, err := lf.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = Decode(data)
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Decode() error = %v, want *CorruptError", err)
	}
	if !strings.Contains(corrupt.Reason, "duplicate") {
		t.Errorf("CorruptError reason = %q, want mention of duplicate", corrupt.Reason)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	original := sampleLock()

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Name != original.Name {
		t.Errorf("Load() name = %q, want %q", loaded.Name, original.Name)
	}
	if len(loaded.Mods) != len(original.Mods) {
		t.Fatalf("Load() mods = %d, want %d", len(loaded.Mods), len(original.Mods))
	}
	if loaded.Mods[0].Ref().Key() != "curseforge:1234" {
		t.Errorf("Load() first mod = %s, want curseforge:1234", loaded.Mods[0].Ref())
	}

	// Saving must leave no temp files behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("lock directory has %d entries, want 1", len(entries))
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultFilename))
	if !errors.Is(err, ErrLockNotFound) {
		t.Errorf("Load() error = %v, want ErrLockNotFound", err)
	}
}

func TestFromGraph(t *testing.T) {
	static := provider.NewStatic("test")
	static.MustAdd(provider.VersionCandidate{
		Ref:      provider.ModRef{Provider: "test", ID: "sodium"},
		Version:  "0.5.3",
		Side:     provider.SideClient,
		Download: provider.Artifact("sodium-0.5.3.jar", []byte("sodium")),
	}, []byte("sodium"))
	static.MustAdd(provider.VersionCandidate{
		Ref:      provider.ModRef{Provider: "test", ID: "lithium"},
		Version:  "2.0.0",
		Download: provider.Artifact("lithium-2.0.0.jar", []byte("lithium")),
	}, []byte("lithium"))

	r := resolver.New(provider.NewRegistry(static), resolver.Options{})
	graph, err := r.Resolve(context.Background(), []provider.Constraint{
		provider.MustConstraint(provider.ModRef{Provider: "test", ID: "sodium"}, "", provider.KindRequired),
		provider.MustConstraint(provider.ModRef{Provider: "test", ID: "lithium"}, "", provider.KindRequired),
	}, provider.Platform{Minecraft: "1.20.1", Loader: "quilt"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	lf := FromGraph("skyfall", "0.3.0", graph)
	if lf.Version != FormatVersion {
		t.Errorf("FromGraph() version = %q, want %q", lf.Version, FormatVersion)
	}
	if lf.Platform.Minecraft != "1.20.1" || lf.Platform.Loader != "quilt" {
		t.Errorf("FromGraph() platform = %+v", lf.Platform)
	}
	if len(lf.Mods) != 2 {
		t.Fatalf("FromGraph() mods = %d, want 2", len(lf.Mods))
	}
	if lf.Mods[0].ID != "lithium" || lf.Mods[1].ID != "sodium" {
		t.Errorf("FromGraph() mod order = [%s, %s], want [lithium, sodium]",
			lf.Mods[0].ID, lf.Mods[1].ID)
	}
	if lf.Mods[1].Side != "client" {
		t.Errorf("FromGraph() sodium side = %q, want client", lf.Mods[1].Side)
	}
	if _, err := lf.Mods[0].ParsedDigest(); err != nil {
		t.Errorf("FromGraph() lithium digest invalid: %v", err)
	}
}

func TestModDownloadSpec(t *testing.T) {
	m := sampleLock().Mods[0]
	spec, err := m.DownloadSpec()
	if err != nil {
		t.Fatalf("DownloadSpec() error = %v", err)
	}
	if spec.URL != m.URL {
		t.Errorf("DownloadSpec() url = %q, want %q", spec.URL, m.URL)
	}
	if spec.Digest.String() != m.Digest {
		t.Errorf("DownloadSpec() digest = %s, want %s", spec.Digest, m.Digest)
	}
}
