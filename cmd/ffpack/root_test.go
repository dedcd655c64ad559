// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"testing"

	"github.com/ffpack/ffpack/internal/issue"
	"github.com/ffpack/ffpack/pkg/assemble"
	"github.com/ffpack/ffpack/pkg/digest"
	"github.com/ffpack/ffpack/pkg/fetch"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/modpack"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/resolver"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	want := []string{"init", "resolve", "build", "rebuild", "cache"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestIssueIDFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantID issue.Id
		wantOK bool
	}{
		{"lock not found", lockfile.ErrLockNotFound, issue.LockNotFoundId, true},
		{"corrupt lock", &lockfile.CorruptError{Path: "x", Reason: "bad"}, issue.LockCorruptId, true},
		{"unsatisfiable", &resolver.UnsatisfiableError{}, issue.ResolutionFailedId, true},
		{"mismatch", &digest.MismatchError{}, issue.DigestMismatchId, true},
		{"missing artifacts", &assemble.MissingArtifactError{}, issue.ArtifactMissingId, true},
		{"mod not found", provider.ErrModNotFound, issue.ModNotFoundId, true},
		{"unavailable", &provider.UnavailableError{Provider: "modrinth", Err: errors.New("503")}, issue.ProviderUnavailableId, true},
		{"partial failure classified by first", &fetch.PartialFailureError{
			Total: 2,
			Failures: []fetch.Failure{
				{Ref: provider.ModRef{Provider: "modrinth", ID: "sodium"}, Err: provider.ErrModNotFound},
			},
		}, issue.ModNotFoundId, true},
		{"unclassified", errors.New("boom"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := issueIDFor(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("issueIDFor() ok = %v, want %v", ok, tt.wantOK)
			}
			if id != tt.wantID {
				t.Errorf("issueIDFor() = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestApplyManifestSides(t *testing.T) {
	lf := &lockfile.LockFile{
		Mods: []lockfile.Mod{
			{Provider: "modrinth", ID: "sodium", Side: "both"},
			{Provider: "modrinth", ID: "lithium", Side: "both"},
		},
	}
	m := &modpack.Manifest{
		Mods: []modpack.Mod{
			{Provider: "modrinth", ID: "sodium", Side: "client"},
			{Provider: "modrinth", ID: "lithium"},
		},
	}

	applyManifestSides(lf, m)

	if lf.Mods[0].Side != "client" {
		t.Errorf("sodium side = %q, want client", lf.Mods[0].Side)
	}
	if lf.Mods[1].Side != "both" {
		t.Errorf("lithium side = %q, want both (no manifest override)", lf.Mods[1].Side)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
