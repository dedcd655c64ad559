// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ffpack/ffpack/pkg/digest"
)

// Static is an in-memory provider client. It backs resolver and
// orchestrator tests and the offline "file" provider, where a pack pins
// artifacts that ship alongside the manifest.
type Static struct {
	name string

	mu      sync.RWMutex
	mods    map[string][]VersionCandidate
	content map[digest.Digest][]byte
}

// NewStatic creates an empty static client with the given provider name.
func NewStatic(name string) *Static {
	return &Static{
		name:    name,
		mods:    make(map[string][]VersionCandidate),
		content: make(map[digest.Digest][]byte),
	}
}

// Name returns the provider name.
func (s *Static) Name() string {
	return s.name
}

// Artifact computes a DownloadSpec for in-memory content, digesting it
// with SHA-256.
func Artifact(filename string, content []byte) DownloadSpec {
	d, err := digest.FromBytes(digest.SHA256, content)
	if err != nil {
		// SHA256 is always supported; FromBytes cannot fail here.
		panic(err)
	}
	return DownloadSpec{
		URL:      "static://" + filename,
		Filename: filename,
		Size:     int64(len(content)),
		Digest:   d,
	}
}

// Add registers a release and the artifact bytes behind its download
// descriptor. Candidates keep their insertion order, which stands in for
// the provider's recency ordering.
func (s *Static) Add(c VersionCandidate, content []byte) error {
	if c.Ref.Provider != s.name {
		return fmt.Errorf("candidate %s does not belong to provider %s", c.Ref, s.name)
	}
	if c.Download.Digest.IsZero() {
		return fmt.Errorf("candidate %s has no download digest", &c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods[c.Ref.Key()] = append(s.mods[c.Ref.Key()], c)
	if content != nil {
		s.content[c.Download.Digest] = content
	}
	return nil
}

// MustAdd is Add that panics on error. For test fixtures.
func (s *Static) MustAdd(c VersionCandidate, content []byte) {
	if err := s.Add(c, content); err != nil {
		panic(err)
	}
}

// ListCandidates returns the registered releases of ref that support the
// platform, in insertion order.
func (s *Static) ListCandidates(_ context.Context, ref ModRef, platform Platform) ([]VersionCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, ok := s.mods[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrModNotFound)
	}

	var compatible []VersionCandidate
	for _, c := range all {
		if c.SupportsPlatform(platform) {
			compatible = append(compatible, c)
		}
	}
	return compatible, nil
}

// Download returns the stored bytes for a download descriptor.
func (s *Static) Download(_ context.Context, spec DownloadSpec) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.content[spec.Digest]
	if !ok {
		return nil, fmt.Errorf("artifact %s (%s): %w", spec.Filename, spec.Digest, ErrModNotFound)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}
