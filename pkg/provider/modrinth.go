// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ffpack/ffpack/pkg/digest"
)

const (
	// modrinthBaseURL is the production Labrinth API endpoint.
	modrinthBaseURL = "https://api.modrinth.com/v2"

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malformed responses.
	maxJSONResponseBytes = 10 << 20
)

type (
	// Modrinth queries the Modrinth (Labrinth) API for mod versions and
	// artifact downloads. It implements Client.
	Modrinth struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string

		// Project side markers live on the project resource, not on
		// versions, so they are fetched once per project and cached.
		mu    sync.Mutex
		sides map[string]Side
	}

	// ModrinthOption configures a Modrinth client during construction.
	ModrinthOption func(*Modrinth)

	// modrinthVersion is the JSON wire format for a project version.
	modrinthVersion struct {
		Name          string               `json:"name"`
		VersionNumber string               `json:"version_number"`
		DatePublished time.Time            `json:"date_published"`
		GameVersions  []string             `json:"game_versions"`
		Loaders       []string             `json:"loaders"`
		Dependencies  []modrinthDependency `json:"dependencies"`
		Files         []modrinthFile       `json:"files"`
	}

	// modrinthDependency is the JSON wire format for a version dependency.
	modrinthDependency struct {
		ProjectID      string `json:"project_id"`
		DependencyType string `json:"dependency_type"`
	}

	// modrinthFile is the JSON wire format for a version file.
	modrinthFile struct {
		Hashes   map[string]string `json:"hashes"`
		URL      string            `json:"url"`
		Filename string            `json:"filename"`
		Primary  bool              `json:"primary"`
		Size     int64             `json:"size"`
	}

	// modrinthProject is the JSON wire format for the project resource,
	// reduced to the side markers.
	modrinthProject struct {
		ClientSide string `json:"client_side"`
		ServerSide string `json:"server_side"`
	}
)

// WithModrinthHTTPClient sets a custom HTTP client, useful for tests or
// proxy configurations.
func WithModrinthHTTPClient(c *http.Client) ModrinthOption {
	return func(m *Modrinth) {
		m.httpClient = c
	}
}

// WithModrinthBaseURL overrides the API base URL, primarily for test servers.
func WithModrinthBaseURL(base string) ModrinthOption {
	return func(m *Modrinth) {
		m.baseURL = strings.TrimRight(base, "/")
	}
}

// WithModrinthUserAgent sets the User-Agent header sent with every request.
// Modrinth rejects requests without one.
func WithModrinthUserAgent(ua string) ModrinthOption {
	return func(m *Modrinth) {
		m.userAgent = ua
	}
}

// NewModrinth creates a Modrinth client with production defaults.
func NewModrinth(opts ...ModrinthOption) *Modrinth {
	m := &Modrinth{
		httpClient: http.DefaultClient,
		baseURL:    modrinthBaseURL,
		userAgent:  "ffpack/dev",
		sides:      make(map[string]Side),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns "modrinth".
func (m *Modrinth) Name() string {
	return "modrinth"
}

// ListCandidates fetches the versions of a project that declare support
// for the platform's game version and loader. The API returns versions
// newest first; that order is preserved as the recency ordering.
func (m *Modrinth) ListCandidates(ctx context.Context, ref ModRef, platform Platform) ([]VersionCandidate, error) {
	query := url.Values{}
	query.Set("game_versions", jsonStringArray(platform.Minecraft))
	if platform.Loader != "" {
		query.Set("loaders", jsonStringArray(platform.Loader))
	}
	versionsURL := fmt.Sprintf("%s/project/%s/version?%s",
		m.baseURL, url.PathEscape(ref.ID), query.Encode())

	resp, err := m.doRequest(ctx, versionsURL)
	if err != nil {
		return nil, &UnavailableError{Provider: m.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", ref, ErrModNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, &UnavailableError{
			Provider: m.Name(),
			Err:      fmt.Errorf("listing versions of %s: unexpected status %d", ref.ID, resp.StatusCode),
		}
	}

	var raw []modrinthVersion
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&raw); err != nil {
		return nil, &UnavailableError{
			Provider: m.Name(),
			Err:      fmt.Errorf("decoding versions of %s: %w", ref.ID, err),
		}
	}

	side, err := m.projectSide(ctx, ref)
	if err != nil {
		return nil, err
	}

	candidates := make([]VersionCandidate, 0, len(raw))
	for _, mv := range raw {
		c, ok := toCandidate(ref, mv, side)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Download opens the artifact stream behind a download descriptor with a
// plain GET. Digest verification happens downstream in the store.
func (m *Modrinth) Download(ctx context.Context, spec DownloadSpec) (io.ReadCloser, error) {
	resp, err := m.doRequest(ctx, spec.URL)
	if err != nil {
		return nil, &UnavailableError{Provider: m.Name(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return nil, fmt.Errorf("artifact %s: %w", spec.Filename, ErrModNotFound)
		}
		return nil, &UnavailableError{
			Provider: m.Name(),
			Err:      fmt.Errorf("downloading %s: unexpected status %d", spec.Filename, resp.StatusCode),
		}
	}

	return resp.Body, nil
}

// projectSide returns the cached side marker for a project, fetching the
// project resource on first use.
func (m *Modrinth) projectSide(ctx context.Context, ref ModRef) (Side, error) {
	m.mu.Lock()
	side, ok := m.sides[ref.ID]
	m.mu.Unlock()
	if ok {
		return side, nil
	}

	projectURL := fmt.Sprintf("%s/project/%s", m.baseURL, url.PathEscape(ref.ID))
	resp, err := m.doRequest(ctx, projectURL)
	if err != nil {
		return "", &UnavailableError{Provider: m.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", ref, ErrModNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", &UnavailableError{
			Provider: m.Name(),
			Err:      fmt.Errorf("getting project %s: unexpected status %d", ref.ID, resp.StatusCode),
		}
	}

	var proj modrinthProject
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&proj); err != nil {
		return "", &UnavailableError{
			Provider: m.Name(),
			Err:      fmt.Errorf("decoding project %s: %w", ref.ID, err),
		}
	}

	side = sideFromMarkers(proj.ClientSide, proj.ServerSide)
	m.mu.Lock()
	m.sides[ref.ID] = side
	m.mu.Unlock()
	return side, nil
}

// doRequest creates and executes a GET request with common headers.
func (m *Modrinth) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// toCandidate converts a wire version into a VersionCandidate. Versions
// without a usable file or digest are skipped rather than failing the
// whole listing.
func toCandidate(ref ModRef, mv modrinthVersion, side Side) (VersionCandidate, bool) {
	file, ok := primaryFile(mv.Files)
	if !ok {
		return VersionCandidate{}, false
	}

	d, ok := fileDigest(file.Hashes)
	if !ok {
		return VersionCandidate{}, false
	}

	var deps []Constraint
	for _, dep := range mv.Dependencies {
		c, ok := toConstraint(ref.Provider, dep)
		if !ok {
			continue
		}
		deps = append(deps, c)
	}

	return VersionCandidate{
		Ref:          ref,
		Version:      mv.VersionNumber,
		DisplayName:  mv.Name,
		ReleasedAt:   mv.DatePublished,
		GameVersions: mv.GameVersions,
		Loaders:      mv.Loaders,
		Side:         side,
		Dependencies: deps,
		Download: DownloadSpec{
			URL:      file.URL,
			Filename: file.Filename,
			Size:     file.Size,
			Digest:   d,
		},
	}, true
}

// toConstraint maps a wire dependency to a Constraint. Modrinth declares
// dependency targets without version ranges, so required and incompatible
// dependencies bind every version. Embedded dependencies ship inside the
// artifact and need no selection of their own.
func toConstraint(providerName string, dep modrinthDependency) (Constraint, bool) {
	if dep.ProjectID == "" {
		return Constraint{}, false
	}

	var kind DependencyKind
	switch dep.DependencyType {
	case "required":
		kind = KindRequired
	case "optional":
		kind = KindOptional
	case "incompatible":
		kind = KindIncompatible
	default:
		return Constraint{}, false
	}

	c, err := NewConstraint(ModRef{Provider: providerName, ID: dep.ProjectID}, "", kind)
	if err != nil {
		return Constraint{}, false
	}
	return c, true
}

// primaryFile picks the file flagged primary, falling back to the first.
func primaryFile(files []modrinthFile) (modrinthFile, bool) {
	if len(files) == 0 {
		return modrinthFile{}, false
	}
	for _, f := range files {
		if f.Primary {
			return f, true
		}
	}
	return files[0], true
}

// fileDigest picks the strongest supported hash from a file's hash map.
// Modrinth declares sha512 and sha1; only sha512 is usable here.
func fileDigest(hashes map[string]string) (digest.Digest, bool) {
	hex, ok := hashes["sha512"]
	if !ok {
		return digest.Digest{}, false
	}
	// The API is not contractually lowercase; canonicalize before the
	// digest is compared or used as a store key.
	d := digest.Digest{Algorithm: digest.SHA512, Hex: hex}.Canonical()
	if err := d.Validate(); err != nil {
		return digest.Digest{}, false
	}
	return d, true
}

// sideFromMarkers folds the project's client_side/server_side markers
// ("required", "optional", "unsupported") into a single Side.
func sideFromMarkers(clientSide, serverSide string) Side {
	switch {
	case serverSide == "unsupported":
		return SideClient
	case clientSide == "unsupported":
		return SideServer
	default:
		return SideBoth
	}
}

// jsonStringArray renders a single-element JSON string array the way the
// Labrinth API expects list parameters.
func jsonStringArray(v string) string {
	b, err := json.Marshal([]string{v})
	if err != nil {
		return "[]"
	}
	return string(b)
}
