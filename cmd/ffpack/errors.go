// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ffpack/ffpack/internal/config"
	"github.com/ffpack/ffpack/internal/issue"
	"github.com/ffpack/ffpack/pkg/assemble"
	"github.com/ffpack/ffpack/pkg/digest"
	"github.com/ffpack/ffpack/pkg/fetch"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/resolver"
)

// issueIDFor classifies an error into the user-facing issue catalog.
func issueIDFor(err error) (issue.Id, bool) {
	var (
		corrupt       *lockfile.CorruptError
		unsatisfiable *resolver.UnsatisfiableError
		unavailable   *provider.UnavailableError
		mismatch      *digest.MismatchError
		missing       *assemble.MissingArtifactError
		partial       *fetch.PartialFailureError
	)

	switch {
	case errors.Is(err, lockfile.ErrLockNotFound):
		return issue.LockNotFoundId, true
	case errors.As(err, &corrupt):
		return issue.LockCorruptId, true
	case errors.As(err, &unsatisfiable):
		return issue.ResolutionFailedId, true
	case errors.As(err, &mismatch):
		return issue.DigestMismatchId, true
	case errors.As(err, &missing):
		return issue.ArtifactMissingId, true
	case errors.Is(err, provider.ErrModNotFound):
		return issue.ModNotFoundId, true
	case errors.As(err, &unavailable):
		return issue.ProviderUnavailableId, true
	case errors.As(err, &partial):
		// Classify by the first failure; the error text lists them all.
		if len(partial.Failures) > 0 {
			return issueIDFor(partial.Failures[0].Err)
		}
		return 0, false
	default:
		var cfgErr *issue.ActionableError
		if errors.As(err, &cfgErr) && cfgErr.Operation == config.LoadOperation {
			return issue.ConfigLoadFailedId, true
		}
		return 0, false
	}
}

// renderIssue writes the matching issue card to stderr and passes the
// error through for the normal exit path.
func renderIssue(err error) error {
	if err == nil {
		return nil
	}
	if id, ok := issueIDFor(err); ok {
		if rendered, renderErr := issue.Get(id).Render("dark"); renderErr == nil {
			fmt.Fprint(os.Stderr, rendered)
		}
	}
	return err
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
