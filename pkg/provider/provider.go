// SPDX-License-Identifier: MPL-2.0

// Package provider defines the abstraction over external mod-metadata
// providers (Modrinth, CurseForge, plain file hosts) and the data model
// shared by the resolver, fetch orchestrator, and lock file codec.
//
// A Client exposes the candidate versions a provider knows for a mod,
// together with their declared dependency constraints and download
// descriptors. Concrete wire formats live behind this interface; the core
// pipeline only ever talks to the contract defined here.
package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/ffpack/ffpack/pkg/digest"
)

// ModRef is the stable identity of a mod within a provider. It is used as
// the node key of the resolution graph and never changes once created.
type ModRef struct {
	// Provider is the provider name, e.g. "modrinth" or "curseforge".
	Provider string
	// ID is the provider-scoped mod identifier (slug or numeric id).
	ID string
}

// ParseModRef parses a "provider:id" reference.
func ParseModRef(s string) (ModRef, error) {
	prov, id, found := strings.Cut(s, ":")
	if !found || prov == "" || id == "" {
		return ModRef{}, fmt.Errorf("invalid mod reference %q: expected provider:id", s)
	}
	return ModRef{Provider: prov, ID: id}, nil
}

// Key returns the canonical sort key "provider:id". Two refs are the same
// mod exactly when their keys are equal.
func (r ModRef) Key() string {
	return r.Provider + ":" + r.ID
}

// String returns the same form as Key.
func (r ModRef) String() string {
	return r.Key()
}

// IsZero reports whether the ref is empty.
func (r ModRef) IsZero() bool {
	return r.Provider == "" && r.ID == ""
}

// Side marks whether a mod is needed on the client, the server, or both.
type Side string

const (
	// SideClient marks a client-only mod.
	SideClient Side = "client"
	// SideServer marks a server-only mod.
	SideServer Side = "server"
	// SideBoth marks a mod needed on both sides. This is the default.
	SideBoth Side = "both"
)

// ParseSide parses a side marker, defaulting empty input to SideBoth.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideClient, SideServer, SideBoth:
		return Side(s), nil
	case "":
		return SideBoth, nil
	default:
		return "", fmt.Errorf("invalid side %q: expected client, server, or both", s)
	}
}

// Platform is the fixed target all selected mod versions must support:
// a Minecraft version plus a mod loader.
type Platform struct {
	// Minecraft is the game version, e.g. "1.20.1".
	Minecraft string
	// Loader is the loader name: "quilt", "fabric", or "forge".
	Loader string
	// LoaderVersion is the loader's own version (informational; providers
	// declare compatibility per loader name, not per loader version).
	LoaderVersion string
}

// String returns a short human-readable platform description.
func (p Platform) String() string {
	if p.Loader == "" {
		return p.Minecraft
	}
	return p.Minecraft + "/" + p.Loader
}

// DownloadSpec describes how to obtain one artifact: where it lives, what
// it is called, and the digest its bytes must hash to.
type DownloadSpec struct {
	// URL is the artifact location.
	URL string
	// Filename is the artifact's file name inside the package.
	Filename string
	// Size is the declared byte size (0 if the provider did not declare one).
	Size int64
	// Digest is the declared content digest.
	Digest digest.Digest
}

// VersionCandidate is one concrete release of a mod. Candidates are created
// from provider responses and are read-only thereafter.
type VersionCandidate struct {
	// Ref identifies the mod this candidate belongs to.
	Ref ModRef
	// Version is the release version. Must parse as semver.
	Version string
	// DisplayName is the provider's human-readable release title (optional).
	DisplayName string
	// ReleasedAt is the provider-declared publication time, used as the
	// recency tie-break during resolution.
	ReleasedAt time.Time
	// GameVersions lists the Minecraft versions this release supports.
	GameVersions []string
	// Loaders lists the loader names this release supports.
	Loaders []string
	// Side marks where the mod runs.
	Side Side
	// Dependencies are the constraints this release declares against
	// other mods.
	Dependencies []Constraint
	// Download describes the artifact for this release.
	Download DownloadSpec
}

// SemVer parses the candidate's version string.
func (c *VersionCandidate) SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("mod %s has invalid version %q: %w", c.Ref, c.Version, err)
	}
	return v, nil
}

// SupportsPlatform reports whether this release declares compatibility with
// the given game version and loader. An empty GameVersions or Loaders list
// means "no restriction" on that axis.
func (c *VersionCandidate) SupportsPlatform(p Platform) bool {
	if len(c.GameVersions) > 0 && !contains(c.GameVersions, p.Minecraft) {
		return false
	}
	if p.Loader != "" && len(c.Loaders) > 0 && !contains(c.Loaders, p.Loader) {
		return false
	}
	return true
}

// String returns "provider:id@version".
func (c *VersionCandidate) String() string {
	return c.Ref.Key() + "@" + c.Version
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Client is the uniform interface over one external mod-metadata provider.
// Implementations wrap a concrete network API; the resolver and fetch
// orchestrator depend only on this contract.
type Client interface {
	// Name returns the provider name used in ModRef.Provider.
	Name() string

	// ListCandidates returns the releases of ref compatible with the
	// platform, newest first by provider ordering. It returns ErrModNotFound
	// when the provider does not know the mod, or an *UnavailableError when
	// the provider cannot currently answer.
	ListCandidates(ctx context.Context, ref ModRef, platform Platform) ([]VersionCandidate, error)

	// Download opens the artifact stream for a download descriptor.
	// Transient transport failures surface as *UnavailableError.
	Download(ctx context.Context, spec DownloadSpec) (io.ReadCloser, error)
}
