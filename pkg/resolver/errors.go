// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"fmt"
	"strings"

	"github.com/ffpack/ffpack/pkg/provider"
)

// UnsatisfiableError reports that no version assignment satisfies every
// constraint. It carries the mod whose alternatives were exhausted, the
// constraints that closed them off, and the chain of decisions that was in
// force when the dead end was reached, so the conflict can be diagnosed
// without re-running the resolver.
type UnsatisfiableError struct {
	// Ref is the mod for which no candidate survived.
	Ref provider.ModRef
	// Constraints are the accumulated requirements on Ref at the dead end.
	Constraints []Justification
	// Decisions is the selection chain active at the dead end, in decision
	// order ("provider:id@version").
	Decisions []string
}

// Error renders a multi-line conflict explanation.
func (e *UnsatisfiableError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no version of %s satisfies all constraints", e.Ref)

	for _, j := range e.Constraints {
		fmt.Fprintf(&sb, "\n  %s (required by %s)", j.Constraint.String(), j.RequiredBy)
	}
	if len(e.Decisions) > 0 {
		sb.WriteString("\n  decision chain: ")
		sb.WriteString(strings.Join(e.Decisions, " -> "))
	}
	return sb.String()
}
