// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into messages a user can act on.
//
// It holds the catalog of known failure classes rendered as Markdown
// cards, plus ActionableError, a structured error carrying the failed
// operation, the resource involved, and remediation suggestions.
package issue
