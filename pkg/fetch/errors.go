// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"fmt"
	"strings"

	"github.com/ffpack/ffpack/pkg/provider"
)

// Failure records one mod whose artifact could not be materialized.
type Failure struct {
	Ref provider.ModRef
	Err error
}

// PartialFailureError reports that some artifacts could not be fetched
// while the rest succeeded. Failures are sorted by mod reference.
type PartialFailureError struct {
	// Total is the number of artifacts that were requested.
	Total int
	// Failures lists the mods that failed, with their final errors.
	Failures []Failure
}

// Error renders a per-mod failure report.
func (e *PartialFailureError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "failed to fetch %d of %d artifacts", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "\n  %s: %v", f.Ref, f.Err)
	}
	return sb.String()
}
