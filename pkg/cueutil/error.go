// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ValidationError is one schema violation tied to a location in the file.
type ValidationError struct {
	// FilePath is the file being validated.
	FilePath string
	// CUEPath locates the invalid value in JSON-path notation,
	// e.g. "mods[0].side".
	CUEPath string
	// Message is the validation failure.
	Message string
	// Suggestion is an optional hint for fixing the error.
	Suggestion string
}

// Error renders "<file>: <path>: <message>", omitting the path when the
// error has no location.
func (e *ValidationError) Error() string {
	if e.CUEPath == "" {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
}

// Unwrap returns nil; ValidationError is a leaf.
func (e *ValidationError) Unwrap() error {
	return nil
}

// FormatError rewrites a CUE error so each failure carries its file and
// JSON path, e.g. "ffpack.cue: mods[2].range: expected string, got int".
// Non-CUE errors are wrapped with the file path only.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := errors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(cueErrs))
	for _, ce := range cueErrs {
		lines = append(lines, describeError(ce))
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// describeError renders one CUE error as "<path>: <message>", stripping
// the path prefix CUE sometimes bakes into the message itself.
func describeError(ce errors.Error) string {
	pathStr := formatPath(errors.Path(ce))
	msg := ce.Error()

	if pathStr == "" {
		return msg
	}
	if rest, found := strings.CutPrefix(msg, pathStr); found {
		msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return pathStr + ": " + msg
}

// formatPath converts a CUE error path (a flat slice where numeric
// elements are list indices, e.g. ["mods", "0", "side"]) into JSON-path
// notation ("mods[0].side").
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

// isIndex reports whether a path element is purely numeric.
func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects input larger than maxSize. Exposed so callers
// can gate a file before handing it to the parser.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
