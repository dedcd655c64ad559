// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"sort"

	"github.com/ffpack/ffpack/pkg/provider"
)

// Justification records why a constraint applies to a mod: the constraint
// itself plus the decision that introduced it.
type Justification struct {
	// Constraint is the version-range requirement.
	Constraint provider.Constraint
	// RequiredBy names the origin: "manifest" for root constraints, or
	// "provider:id@version" for a selected candidate's declaration.
	RequiredBy string
}

// Graph is the output of a successful resolution: exactly one selected
// version per mod, plus the constraint provenance that justifies each
// selection. A Graph is immutable once returned.
type Graph struct {
	// Platform is the target the graph was resolved against.
	Platform provider.Platform

	selected map[string]provider.VersionCandidate
	reasons  map[string][]Justification
}

// Len returns the number of selected mods.
func (g *Graph) Len() int {
	return len(g.selected)
}

// Refs returns the selected mod references sorted by key. The order is the
// canonical iteration order for lock files and package assembly.
func (g *Graph) Refs() []provider.ModRef {
	keys := make([]string, 0, len(g.selected))
	for key := range g.selected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	refs := make([]provider.ModRef, len(keys))
	for i, key := range keys {
		refs[i] = g.selected[key].Ref
	}
	return refs
}

// Selected returns the candidate chosen for ref.
func (g *Graph) Selected(ref provider.ModRef) (provider.VersionCandidate, bool) {
	c, ok := g.selected[ref.Key()]
	return c, ok
}

// Candidates returns all selected candidates in Refs order.
func (g *Graph) Candidates() []provider.VersionCandidate {
	refs := g.Refs()
	cands := make([]provider.VersionCandidate, len(refs))
	for i, ref := range refs {
		cands[i] = g.selected[ref.Key()]
	}
	return cands
}

// Justifications returns the constraint provenance accumulated for ref
// during resolution.
func (g *Graph) Justifications(ref provider.ModRef) []Justification {
	return g.reasons[ref.Key()]
}
