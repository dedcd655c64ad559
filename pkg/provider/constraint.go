// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// DependencyKind classifies how a constraint binds its target mod.
type DependencyKind string

const (
	// KindRequired means the target mod must be selected and must satisfy
	// the version range.
	KindRequired DependencyKind = "required"
	// KindOptional means the target mod need not be selected, but if it is,
	// the selected version must satisfy the range.
	KindOptional DependencyKind = "optional"
	// KindIncompatible means no selected version of the target mod may
	// satisfy the range. An empty range excludes every version.
	KindIncompatible DependencyKind = "incompatible"
)

// ParseDependencyKind parses a dependency kind, defaulting empty input to
// KindRequired.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch DependencyKind(s) {
	case KindRequired, KindOptional, KindIncompatible:
		return DependencyKind(s), nil
	case "":
		return KindRequired, nil
	default:
		return "", fmt.Errorf("invalid dependency kind %q: expected required, optional, or incompatible", s)
	}
}

// Constraint is a version-range requirement attached to a mod. Constraints
// against the same mod compose by conjunction.
type Constraint struct {
	// Ref is the mod the constraint applies to.
	Ref ModRef
	// Range is the raw range expression ("^1.2.0", ">=1.0.0 <2.0.0", "2.0.0").
	// Empty means "any version".
	Range string
	// Kind classifies the constraint.
	Kind DependencyKind

	rng *semver.Constraints
}

// NewConstraint builds a Constraint, validating the range expression.
func NewConstraint(ref ModRef, versionRange string, kind DependencyKind) (Constraint, error) {
	if ref.IsZero() {
		return Constraint{}, fmt.Errorf("constraint requires a mod reference")
	}
	if kind == "" {
		kind = KindRequired
	}

	c := Constraint{Ref: ref, Range: versionRange, Kind: kind}
	if versionRange != "" {
		rng, err := semver.NewConstraint(versionRange)
		if err != nil {
			return Constraint{}, fmt.Errorf("invalid version range %q for %s: %w", versionRange, ref, err)
		}
		c.rng = rng
	}
	return c, nil
}

// MustConstraint builds a Constraint and panics on error. For test fixtures.
func MustConstraint(ref ModRef, versionRange string, kind DependencyKind) Constraint {
	c, err := NewConstraint(ref, versionRange, kind)
	if err != nil {
		panic(err)
	}
	return c
}

// InRange reports whether v falls inside the constraint's version range.
// An empty range contains every version. Note that for KindIncompatible
// this means the version is excluded, not allowed; use Permits for the
// kind-aware check.
func (c Constraint) InRange(v *semver.Version) bool {
	if c.rng == nil {
		return true
	}
	return c.rng.Check(v)
}

// Permits reports whether selecting version v of the target mod is
// consistent with this constraint.
func (c Constraint) Permits(v *semver.Version) bool {
	if c.Kind == KindIncompatible {
		return !c.InRange(v)
	}
	return c.InRange(v)
}

// String returns a human-readable form like "required modrinth:sodium ^0.5".
func (c Constraint) String() string {
	if c.Range == "" {
		return fmt.Sprintf("%s %s (any version)", c.Kind, c.Ref)
	}
	return fmt.Sprintf("%s %s %s", c.Kind, c.Ref, c.Range)
}
