// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/exp/slices"

	"github.com/ffpack/ffpack/pkg/provider"
)

// searchState is the resolver's view of the world at one decision point:
// which mods are selected at which version, which constraints are known,
// and which mods still await a decision. States are cloned before every
// decision so backtracking never has to undo mutations.
type searchState struct {
	// selected maps ref key to the chosen candidate.
	selected map[string]provider.VersionCandidate
	// versions caches the parsed semver of each selected candidate.
	versions map[string]*semver.Version
	// reasons accumulates constraint provenance per ref key.
	reasons map[string][]Justification
	// pending holds refs that have a required constraint but no selection.
	pending map[string]provider.ModRef
}

func newSearchState() *searchState {
	return &searchState{
		selected: make(map[string]provider.VersionCandidate),
		versions: make(map[string]*semver.Version),
		reasons:  make(map[string][]Justification),
		pending:  make(map[string]provider.ModRef),
	}
}

func (s *searchState) clone() *searchState {
	next := &searchState{
		selected: make(map[string]provider.VersionCandidate, len(s.selected)),
		versions: make(map[string]*semver.Version, len(s.versions)),
		reasons:  make(map[string][]Justification, len(s.reasons)),
		pending:  make(map[string]provider.ModRef, len(s.pending)),
	}
	for k, v := range s.selected {
		next.selected[k] = v
	}
	for k, v := range s.versions {
		next.versions[k] = v
	}
	for k, v := range s.reasons {
		next.reasons[k] = slices.Clone(v)
	}
	for k, v := range s.pending {
		next.pending[k] = v
	}
	return next
}

// addConstraint records a constraint and, for required kinds, marks the
// target mod as pending unless it is already selected.
func (s *searchState) addConstraint(c provider.Constraint, origin string) {
	key := c.Ref.Key()
	s.reasons[key] = append(s.reasons[key], Justification{Constraint: c, RequiredBy: origin})
	if c.Kind == provider.KindRequired {
		if _, done := s.selected[key]; !done {
			s.pending[key] = c.Ref
		}
	}
}

// nextPending returns the lexicographically smallest pending ref. The fixed
// order makes resolution deterministic.
func (s *searchState) nextPending() (provider.ModRef, bool) {
	if len(s.pending) == 0 {
		return provider.ModRef{}, false
	}
	keys := make([]string, 0, len(s.pending))
	for key := range s.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return s.pending[keys[0]], true
}

// apply selects a candidate and propagates its declared constraints.
// It returns a new state, leaving the receiver untouched, or an error
// describing the conflict that makes the candidate unusable.
func (s *searchState) apply(c provider.VersionCandidate) (*searchState, error) {
	v, err := c.SemVer()
	if err != nil {
		return nil, err
	}

	next := s.clone()
	key := c.Ref.Key()
	delete(next.pending, key)
	next.selected[key] = c
	next.versions[key] = v

	origin := c.String()
	for _, dep := range c.Dependencies {
		depKey := dep.Ref.Key()
		next.reasons[depKey] = append(next.reasons[depKey], Justification{Constraint: dep, RequiredBy: origin})

		if selectedVersion, ok := next.versions[depKey]; ok {
			// The target is already decided: the new constraint must hold
			// against that decision, otherwise this candidate conflicts.
			if !dep.Permits(selectedVersion) {
				chosen := next.selected[depKey]
				return nil, fmt.Errorf("%s declares %q but %s is selected", origin, dep.String(), &chosen)
			}
			continue
		}
		if dep.Kind == provider.KindRequired {
			next.pending[depKey] = dep.Ref
		}
	}
	return next, nil
}
