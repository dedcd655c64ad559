// SPDX-License-Identifier: MPL-2.0

// Package resolver selects one concrete version per requested mod such that
// every declared dependency and incompatibility constraint holds against a
// fixed target platform.
//
// The search is a backtracking constraint propagation over an explicit
// decision stack: each decision frame records the mod it decided, the
// ordered candidate list, the index of the next untried candidate, and a
// snapshot of the search state taken before the decision. Backtracking
// restores the snapshot and advances the index; there is no shared mutable
// worklist across decision points.
//
// Resolution is deterministic: pending mods are decided in lexicographic
// reference order and candidates are ordered by the configured preference
// (version descending by default), so identical inputs always produce
// identical graphs.
package resolver

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/ffpack/ffpack/pkg/provider"
)

// Preference selects the candidate ordering among equally valid versions.
type Preference string

const (
	// PreferVersion orders candidates by version descending, breaking ties
	// by provider-declared recency. This is the default.
	PreferVersion Preference = "version"
	// PreferRecency orders candidates by provider-declared release time
	// descending, breaking ties by version.
	PreferRecency Preference = "recency"
)

// ParsePreference parses a preference name, defaulting empty input to
// PreferVersion.
func ParsePreference(s string) (Preference, error) {
	switch Preference(s) {
	case PreferVersion, PreferRecency:
		return Preference(s), nil
	case "":
		return PreferVersion, nil
	default:
		return "", fmt.Errorf("invalid preference %q: expected version or recency", s)
	}
}

// Options configures a Resolver.
type Options struct {
	// Preference is the candidate ordering. Defaults to PreferVersion.
	Preference Preference
	// Logger receives debug-level decision and backtrack events.
	// Defaults to a discarding logger.
	Logger *log.Logger
}

// Resolver runs resolutions against a set of provider clients.
// It is single-threaded per Resolve call; the backtracking search is
// inherently sequential per decision point.
type Resolver struct {
	registry *provider.Registry
	opts     Options
}

// New creates a Resolver.
func New(registry *provider.Registry, opts Options) *Resolver {
	if opts.Preference == "" {
		opts.Preference = PreferVersion
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Resolver{registry: registry, opts: opts}
}

// rootOrigin names the provenance of manifest-level constraints.
const rootOrigin = "manifest"

// Resolve selects one version per mod reachable from the root constraints.
// It returns an *UnsatisfiableError when no assignment satisfies every
// constraint; provider lookup failures propagate as-is.
func (r *Resolver) Resolve(ctx context.Context, roots []provider.Constraint, platform provider.Platform) (*Graph, error) {
	state := newSearchState()
	for _, c := range roots {
		state.addConstraint(c, rootOrigin)
	}

	run := &searchRun{
		resolver: r,
		platform: platform,
		listings: make(map[string][]provider.VersionCandidate),
	}
	return run.solve(ctx, state)
}

// searchRun holds per-resolution caches so repeated backtracking never
// re-queries a provider for the same mod.
type searchRun struct {
	resolver *Resolver
	platform provider.Platform
	listings map[string][]provider.VersionCandidate
}

// frame is one decision point on the stack.
type frame struct {
	ref        provider.ModRef
	candidates []provider.VersionCandidate
	next       int
	// saved is the search state before this decision was applied.
	// Backtracking restores a clone of it.
	saved *searchState
}

func (r *searchRun) solve(ctx context.Context, state *searchState) (*Graph, error) {
	logger := r.resolver.opts.Logger
	var stack []*frame

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolution canceled: %w", err)
		}

		ref, ok := state.nextPending()
		if !ok {
			return &Graph{
				Platform: r.platform,
				selected: state.selected,
				reasons:  state.reasons,
			}, nil
		}

		candidates, err := r.viableCandidates(ctx, ref, state)
		if err != nil {
			return nil, err
		}
		f := &frame{ref: ref, candidates: candidates, saved: state.clone()}

		for {
			if f.next >= len(f.candidates) {
				// Dead end: every candidate for f.ref violates a constraint.
				failed := f.ref
				reasons := state.reasons[failed.Key()]
				decisions := decisionChain(stack)

				logger.Debug("dead end, backtracking", "mod", failed, "constraints", len(reasons))

				backtracked := false
				for len(stack) > 0 {
					f = stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					state = f.saved.clone()
					f.next++
					if f.next < len(f.candidates) {
						backtracked = true
						break
					}
				}
				if !backtracked {
					return nil, &UnsatisfiableError{
						Ref:         failed,
						Constraints: reasons,
						Decisions:   decisions,
					}
				}
				continue
			}

			candidate := f.candidates[f.next]
			nextState, conflict := state.apply(candidate)
			if conflict != nil {
				logger.Debug("candidate rejected", "candidate", &candidate, "conflict", conflict)
				f.next++
				continue
			}

			logger.Debug("selected", "candidate", &candidate)
			state = nextState
			stack = append(stack, f)
			break
		}
	}
}

// viableCandidates lists, filters, and orders the candidates for ref under
// the constraints currently known to apply to it.
func (r *searchRun) viableCandidates(ctx context.Context, ref provider.ModRef, state *searchState) ([]provider.VersionCandidate, error) {
	listing, err := r.listing(ctx, ref)
	if err != nil {
		return nil, err
	}

	type scored struct {
		cand    provider.VersionCandidate
		version *semver.Version
		// order is the provider listing position, newest first. It is the
		// recency tie-break and keeps sorting stable.
		order int
	}

	justifications := state.reasons[ref.Key()]
	var viable []scored
	for i, c := range listing {
		v, err := c.SemVer()
		if err != nil {
			// Unparseable versions cannot participate in range checks.
			continue
		}
		if !c.SupportsPlatform(r.platform) {
			continue
		}
		permitted := true
		for _, j := range justifications {
			if !j.Constraint.Permits(v) {
				permitted = false
				break
			}
		}
		if permitted {
			viable = append(viable, scored{cand: c, version: v, order: i})
		}
	}

	prefer := r.resolver.opts.Preference
	sort.SliceStable(viable, func(i, j int) bool {
		a, b := viable[i], viable[j]
		if prefer == PreferRecency {
			if !a.cand.ReleasedAt.Equal(b.cand.ReleasedAt) {
				return a.cand.ReleasedAt.After(b.cand.ReleasedAt)
			}
		}
		if cmp := a.version.Compare(b.version); cmp != 0 {
			return cmp > 0
		}
		if !a.cand.ReleasedAt.Equal(b.cand.ReleasedAt) {
			return a.cand.ReleasedAt.After(b.cand.ReleasedAt)
		}
		return a.order < b.order
	})

	out := make([]provider.VersionCandidate, len(viable))
	for i, s := range viable {
		out[i] = s.cand
	}
	return out, nil
}

// listing fetches (once per run) the platform-compatible releases of ref.
func (r *searchRun) listing(ctx context.Context, ref provider.ModRef) ([]provider.VersionCandidate, error) {
	key := ref.Key()
	if cached, ok := r.listings[key]; ok {
		return cached, nil
	}

	client, err := r.resolver.registry.For(ref)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", ref, err)
	}
	listing, err := client.ListCandidates(ctx, ref, r.platform)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", ref, err)
	}
	r.listings[key] = listing
	return listing, nil
}

// decisionChain renders the current decision stack for diagnostics.
func decisionChain(stack []*frame) []string {
	chain := make([]string, 0, len(stack))
	for _, f := range stack {
		if f.next < len(f.candidates) {
			c := f.candidates[f.next]
			chain = append(chain, c.String())
		}
	}
	return chain
}
