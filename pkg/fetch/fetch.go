// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads the artifacts of a resolved graph or pinned lock
// file into the content-addressed store.
//
// Downloads run on a bounded worker pool. Every stream is verified against
// its declared digest while it is written; artifacts already present in the
// store are skipped without touching the network. Transient provider
// failures are retried with exponential backoff, while digest mismatches
// and missing mods fail immediately since retrying cannot change their
// outcome.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ffpack/ffpack/pkg/digest"
	"github.com/ffpack/ffpack/pkg/lockfile"
	"github.com/ffpack/ffpack/pkg/provider"
	"github.com/ffpack/ffpack/pkg/resolver"
	"github.com/ffpack/ffpack/pkg/store"
)

const (
	// DefaultWorkers is the download concurrency when Options.Workers is 0.
	DefaultWorkers = 4
	// DefaultAttempts is the per-artifact attempt budget when
	// Options.Attempts is 0. It counts the first try plus retries.
	DefaultAttempts = 3
)

// Options configures a Fetcher.
type Options struct {
	// Workers bounds the number of concurrent downloads.
	Workers int
	// Attempts is the total tries per artifact, including the first.
	Attempts int
	// Timeout bounds a single download attempt. Zero means no limit.
	Timeout time.Duration
	// RetryInterval is the initial backoff delay between attempts.
	// Zero uses the backoff package default.
	RetryInterval time.Duration
	// FailFast cancels in-flight downloads on the first failure instead of
	// collecting every failure into one report.
	FailFast bool
	// Logger receives per-artifact progress events. Defaults to a
	// discarding logger.
	Logger *log.Logger
}

// Fetcher downloads artifacts through provider clients into a store.
type Fetcher struct {
	registry *provider.Registry
	store    *store.Store
	opts     Options
}

// New creates a Fetcher.
func New(registry *provider.Registry, st *store.Store, opts Options) *Fetcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Fetcher{registry: registry, store: st, opts: opts}
}

// item is one artifact to materialize.
type item struct {
	ref  provider.ModRef
	spec provider.DownloadSpec
}

// FetchGraph materializes every artifact selected by a resolved graph and
// returns the store entry per mod. On partial failure the returned map
// holds the mods that succeeded and the error is a *PartialFailureError.
func (f *Fetcher) FetchGraph(ctx context.Context, g *resolver.Graph) (map[provider.ModRef]store.Entry, error) {
	items := make([]item, 0, g.Len())
	for _, c := range g.Candidates() {
		items = append(items, item{ref: c.Ref, spec: c.Download})
	}
	return f.fetchAll(ctx, items)
}

// FetchLock materializes every artifact pinned by a lock file. Providers
// are consulted only for transport; versions and digests come from the pins.
func (f *Fetcher) FetchLock(ctx context.Context, lf *lockfile.LockFile) (map[provider.ModRef]store.Entry, error) {
	items := make([]item, 0, len(lf.Mods))
	for _, m := range lf.Mods {
		spec, err := m.DownloadSpec()
		if err != nil {
			return nil, fmt.Errorf("lock entry %s: %w", m.Ref(), err)
		}
		items = append(items, item{ref: m.Ref(), spec: spec})
	}
	return f.fetchAll(ctx, items)
}

func (f *Fetcher) fetchAll(ctx context.Context, items []item) (map[provider.ModRef]store.Entry, error) {
	var (
		mu       sync.Mutex
		entries  = make(map[provider.ModRef]store.Entry, len(items))
		failures []Failure
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.opts.Workers)

	for _, it := range items {
		it := it
		eg.Go(func() error {
			entry, err := f.fetchOne(ctx, it)
			if err != nil {
				if f.opts.FailFast {
					return fmt.Errorf("failed to fetch %s: %w", it.ref, err)
				}
				mu.Lock()
				failures = append(failures, Failure{Ref: it.ref, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			entries[it.ref] = entry
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return entries, err
	}
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool {
			return failures[i].Ref.Key() < failures[j].Ref.Key()
		})
		return entries, &PartialFailureError{Total: len(items), Failures: failures}
	}
	return entries, nil
}

// fetchOne materializes a single artifact, hitting the store cache first.
func (f *Fetcher) fetchOne(ctx context.Context, it item) (store.Entry, error) {
	logger := f.opts.Logger

	entry, err := f.store.Stat(it.spec.Digest)
	if err == nil {
		logger.Debug("cache hit", "mod", it.ref, "digest", it.spec.Digest)
		return entry, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		// Only a missing entry warrants a download. Anything else means
		// the store itself is broken and must surface.
		return store.Entry{}, err
	}

	client, err := f.registry.For(it.ref)
	if err != nil {
		return store.Entry{}, err
	}

	attempt := 0
	operation := func() error {
		attempt++
		e, err := f.download(ctx, client, it.spec)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		entry = e
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("download failed, retrying",
			"mod", it.ref, "attempt", attempt, "wait", wait, "error", err)
	}

	expo := backoff.NewExponentialBackOff()
	if f.opts.RetryInterval > 0 {
		expo.InitialInterval = f.opts.RetryInterval
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(f.opts.Attempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return store.Entry{}, err
	}

	logger.Debug("fetched", "mod", it.ref, "file", it.spec.Filename, "size", entry.Size)
	return entry, nil
}

// download runs one attempt: open the provider stream and commit it to the
// store under the declared digest.
func (f *Fetcher) download(ctx context.Context, client provider.Client, spec provider.DownloadSpec) (store.Entry, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	rc, err := client.Download(ctx, spec)
	if err != nil {
		return store.Entry{}, err
	}
	defer rc.Close()

	return f.store.Put(rc, spec.Digest)
}

// isPermanent reports whether retrying the failed attempt is pointless.
// Timeouts of individual attempts stay retryable; the backoff policy's
// context hook handles overall cancellation.
func isPermanent(err error) bool {
	var mismatch *digest.MismatchError
	if errors.As(err, &mismatch) {
		return true
	}
	if errors.Is(err, provider.ErrModNotFound) {
		return true
	}
	if errors.Is(err, digest.ErrUnsupportedAlgorithm) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
