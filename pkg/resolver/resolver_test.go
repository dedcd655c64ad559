// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ffpack/ffpack/pkg/provider"
)

var testPlatform = provider.Platform{Minecraft: "1.20.1", Loader: "quilt"}

// release builds a platform-compatible candidate for the test provider.
func release(id, version string, released time.Time, deps ...provider.Constraint) provider.VersionCandidate {
	content := []byte(id + "-" + version)
	return provider.VersionCandidate{
		Ref:          provider.ModRef{Provider: "test", ID: id},
		Version:      version,
		ReleasedAt:   released,
		GameVersions: []string{"1.20.1"},
		Loaders:      []string{"quilt"},
		Side:         provider.SideBoth,
		Dependencies: deps,
		Download:     provider.Artifact(id+"-"+version+".jar", content),
	}
}

func ref(id string) provider.ModRef {
	return provider.ModRef{Provider: "test", ID: id}
}

func requires(id, versionRange string) provider.Constraint {
	return provider.MustConstraint(ref(id), versionRange, provider.KindRequired)
}

func incompatible(id, versionRange string) provider.Constraint {
	return provider.MustConstraint(ref(id), versionRange, provider.KindIncompatible)
}

func optional(id, versionRange string) provider.Constraint {
	return provider.MustConstraint(ref(id), versionRange, provider.KindOptional)
}

func newTestResolver(t *testing.T, opts Options, candidates ...provider.VersionCandidate) *Resolver {
	t.Helper()
	client := provider.NewStatic("test")
	for _, c := range candidates {
		client.MustAdd(c, []byte(c.Ref.ID+"-"+c.Version))
	}
	return New(provider.NewRegistry(client), opts)
}

func mustResolve(t *testing.T, r *Resolver, roots []provider.Constraint) *Graph {
	t.Helper()
	g, err := r.Resolve(context.Background(), roots, testPlatform)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return g
}

func selectedVersion(t *testing.T, g *Graph, id string) string {
	t.Helper()
	c, ok := g.Selected(ref(id))
	if !ok {
		t.Fatalf("mod %s not selected; graph has %v", id, g.Refs())
	}
	return c.Version
}

func TestResolvePrefersLatestVersion(t *testing.T) {
	r := newTestResolver(t, Options{},
		release("sodium", "0.5.3", time.Time{}),
		release("sodium", "0.5.2", time.Time{}),
		release("sodium", "0.4.10", time.Time{}),
	)

	g := mustResolve(t, r, []provider.Constraint{requires("sodium", "")})
	if got := selectedVersion(t, g, "sodium"); got != "0.5.3" {
		t.Errorf("selected version = %q, want %q", got, "0.5.3")
	}
}

func TestResolveHonorsRootRange(t *testing.T) {
	r := newTestResolver(t, Options{},
		release("sodium", "0.5.3", time.Time{}),
		release("sodium", "0.4.10", time.Time{}),
	)

	g := mustResolve(t, r, []provider.Constraint{requires("sodium", "~0.4.0")})
	if got := selectedVersion(t, g, "sodium"); got != "0.4.10" {
		t.Errorf("selected version = %q, want %q", got, "0.4.10")
	}
}

func TestResolveTransitiveDependencies(t *testing.T) {
	r := newTestResolver(t, Options{},
		release("moda", "1.2.0", time.Time{}, requires("modc", ">=2.0.0")),
		release("modc", "2.5.0", time.Time{}),
		release("modc", "2.0.0", time.Time{}),
	)

	g := mustResolve(t, r, []provider.Constraint{requires("moda", ">=1.0.0")})
	if got := selectedVersion(t, g, "moda"); got != "1.2.0" {
		t.Errorf("moda version = %q, want %q", got, "1.2.0")
	}
	if got := selectedVersion(t, g, "modc"); got != "2.5.0" {
		t.Errorf("modc version = %q, want %q", got, "2.5.0")
	}
	if g.Len() != 2 {
		t.Errorf("graph has %d mods, want 2", g.Len())
	}
}

// The incompatibility scenario from the design discussion: ModA pulls in
// ModC >=2.0, ModB is incompatible with ModC 2.0 but fine with 2.5. The
// resolver must pick ModC 2.5 even though no other rule prefers it.
func TestResolveAvoidsIncompatibleVersion(t *testing.T) {
	r := newTestResolver(t, Options{},
		release("moda", "1.2.0", time.Time{}, requires("modc", ">=2.0.0")),
		release("modb", "3.0.0", time.Time{}, incompatible("modc", "2.0.0")),
		release("modc", "2.5.0", time.Time{}),
		release("modc", "2.0.0", time.Time{}),
	)

	roots := []provider.Constraint{
		requires("moda", ">=1.0.0"),
		requires("modb", ""),
	}
	g := mustResolve(t, r, roots)
	if got := selectedVersion(t, g, "modc"); got != "2.5.0" {
		t.Errorf("modc version = %q, want %q", got, "2.5.0")
	}
}

func TestResolveUnsatisfiableCitesConflict(t *testing.T) {
	r := newTestResolver(t, Options{},
		release("moda", "1.2.0", time.Time{}, requires("modc", ">=2.0.0")),
		release("modb", "3.0.0", time.Time{}, incompatible("modc", "2.0.0")),
		release("modc", "2.0.0", time.Time{}),
	)

	roots := []provider.Constraint{
		requires("moda", ">=1.0.0"),
		requires("modb", ""),
	}
	_, err := r.Resolve(context.Background(), roots, testPlatform)

	var unsat *UnsatisfiableError
	if !errors.As(err, &unsat) {
		t.Fatalf("Resolve() error = %v, want *UnsatisfiableError", err)
	}
	if unsat.Ref != ref("modc") {
		t.Errorf("failed ref = %v, want %v", unsat.Ref, ref("modc"))
	}

	// The explanation must cite the incompatibility that closed off modc.
	msg := unsat.Error()
	if !strings.Contains(msg, "incompatible") || !strings.Contains(msg, "test:modb@3.0.0") {
		t.Errorf("explanation missing incompatibility provenance:\n%s", msg)
	}
	if !strings.Contains(msg, "test:modc") {
		t.Errorf("explanation missing failed mod:\n%s", msg)
	}
}

func TestResolveBacktracksToOlderVersion(t *testing.T) {
	// modx 2.0 needs mody >=5, which has no matching release; the resolver
	// must fall back to modx 1.0, which has no dependencies at all.
	r := newTestResolver(t, Options{},
		release("modx", "2.0.0", time.Time{}, requires("mody", ">=5.0.0")),
		release("modx", "1.0.0", time.Time{}),
		release("mody", "4.0.0", time.Time{}),
	)

	g := mustResolve(t, r, []provider.Constraint{requires("modx", "")})
	if got := selectedVersion(t, g, "modx"); got != "1.0.0" {
		t.Errorf("modx version = %q, want %q", got, "1.0.0")
	}
	if _, ok := g.Selected(ref("mody")); ok {
		t.Error("mody should not be selected after backtracking")
	}
}

func TestResolveRejectsCandidateConflictingWithSelection(t *testing.T) {
	// modb 2.0 declares itself incompatible with the already-selected
	// moda 1.0; the resolver must fall back to modb 1.5.
	r := newTestResolver(t, Options{},
		release("moda", "1.0.0", time.Time{}),
		release("modb", "2.0.0", time.Time{}, incompatible("moda", "1.0.0")),
		release("modb", "1.5.0", time.Time{}),
	)

	roots := []provider.Constraint{
		requires("moda", ""),
		requires("modb", ""),
	}
	g := mustResolve(t, r, roots)
	if got := selectedVersion(t, g, "modb"); got != "1.5.0" {
		t.Errorf("modb version = %q, want %q", got, "1.5.0")
	}
}

func TestResolveOptionalDependencies(t *testing.T) {
	t.Run("optional target is not pulled in", func(t *testing.T) {
		r := newTestResolver(t, Options{},
			release("moda", "1.0.0", time.Time{}, optional("modc", "^1.0.0")),
			release("modc", "1.2.0", time.Time{}),
		)

		g := mustResolve(t, r, []provider.Constraint{requires("moda", "")})
		if _, ok := g.Selected(ref("modc")); ok {
			t.Error("optional dependency should not be selected")
		}
	})

	t.Run("optional range binds once target is required", func(t *testing.T) {
		r := newTestResolver(t, Options{},
			release("moda", "1.0.0", time.Time{}, optional("modc", "^1.0.0")),
			release("modb", "1.0.0", time.Time{}, requires("modc", "")),
			release("modc", "2.0.0", time.Time{}),
			release("modc", "1.2.0", time.Time{}),
		)

		roots := []provider.Constraint{requires("moda", ""), requires("modb", "")}
		g := mustResolve(t, r, roots)
		if got := selectedVersion(t, g, "modc"); got != "1.2.0" {
			t.Errorf("modc version = %q, want %q (optional range must bind)", got, "1.2.0")
		}
	})
}

func TestResolveSkipsIncompatiblePlatform(t *testing.T) {
	forgeOnly := release("sodium", "0.6.0", time.Time{})
	forgeOnly.Loaders = []string{"forge"}

	r := newTestResolver(t, Options{},
		forgeOnly,
		release("sodium", "0.5.3", time.Time{}),
	)

	g := mustResolve(t, r, []provider.Constraint{requires("sodium", "")})
	if got := selectedVersion(t, g, "sodium"); got != "0.5.3" {
		t.Errorf("selected version = %q, want %q", got, "0.5.3")
	}
}

func TestResolveDeterminism(t *testing.T) {
	build := func() *Resolver {
		return newTestResolver(t, Options{},
			release("moda", "1.2.0", time.Time{}, requires("modc", ">=2.0.0")),
			release("moda", "1.1.0", time.Time{}),
			release("modb", "3.0.0", time.Time{}, incompatible("modc", "2.0.0")),
			release("modc", "2.5.0", time.Time{}),
			release("modc", "2.0.0", time.Time{}),
		)
	}
	roots := []provider.Constraint{
		requires("moda", ">=1.0.0"),
		requires("modb", ""),
	}

	first := mustResolve(t, build(), roots)
	second := mustResolve(t, build(), roots)

	firstRefs := first.Refs()
	secondRefs := second.Refs()
	if len(firstRefs) != len(secondRefs) {
		t.Fatalf("graphs differ in size: %d vs %d", len(firstRefs), len(secondRefs))
	}
	for i := range firstRefs {
		if firstRefs[i] != secondRefs[i] {
			t.Errorf("ref order differs at %d: %v vs %v", i, firstRefs[i], secondRefs[i])
		}
		a, _ := first.Selected(firstRefs[i])
		b, _ := second.Selected(firstRefs[i])
		if a.Version != b.Version {
			t.Errorf("%v resolved to %q and %q across runs", firstRefs[i], a.Version, b.Version)
		}
	}
}

func TestResolvePreference(t *testing.T) {
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// A backport: version 1.9.1 was published after 2.0.0.
	candidates := []provider.VersionCandidate{
		release("lithium", "2.0.0", older),
		release("lithium", "1.9.1", newer),
	}
	roots := []provider.Constraint{requires("lithium", "")}

	t.Run("prefer version picks highest", func(t *testing.T) {
		r := newTestResolver(t, Options{Preference: PreferVersion}, candidates...)
		g := mustResolve(t, r, roots)
		if got := selectedVersion(t, g, "lithium"); got != "2.0.0" {
			t.Errorf("selected = %q, want %q", got, "2.0.0")
		}
	})

	t.Run("prefer recency picks newest release", func(t *testing.T) {
		r := newTestResolver(t, Options{Preference: PreferRecency}, candidates...)
		g := mustResolve(t, r, roots)
		if got := selectedVersion(t, g, "lithium"); got != "1.9.1" {
			t.Errorf("selected = %q, want %q", got, "1.9.1")
		}
	})
}

func TestResolveModNotFound(t *testing.T) {
	r := newTestResolver(t, Options{})

	_, err := r.Resolve(context.Background(), []provider.Constraint{requires("ghost", "")}, testPlatform)
	if !errors.Is(err, provider.ErrModNotFound) {
		t.Errorf("Resolve() error = %v, want ErrModNotFound", err)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	r := New(provider.NewRegistry(), Options{})
	root := provider.MustConstraint(provider.ModRef{Provider: "nowhere", ID: "mod"}, "", provider.KindRequired)

	_, err := r.Resolve(context.Background(), []provider.Constraint{root}, testPlatform)
	var unknown *provider.UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Errorf("Resolve() error = %v, want *UnknownProviderError", err)
	}
}

func TestResolveCanceledContext(t *testing.T) {
	r := newTestResolver(t, Options{}, release("sodium", "0.5.3", time.Time{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, []provider.Constraint{requires("sodium", "")}, testPlatform)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}

func TestParsePreference(t *testing.T) {
	tests := []struct {
		input   string
		want    Preference
		wantErr bool
	}{
		{input: "version", want: PreferVersion},
		{input: "recency", want: PreferRecency},
		{input: "", want: PreferVersion},
		{input: "newest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("preference "+tt.input, func(t *testing.T) {
			got, err := ParsePreference(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePreference(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePreference(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePreference(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
