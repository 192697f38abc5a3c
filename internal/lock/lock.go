// Package lock implements the cross-process advisory file lock spec
// §5 calls for: "an OS-level file-lock API with a hold-while-scope
// helper" (§9 Design Notes), guaranteeing at-most-one concurrent
// computation per fingerprint across processes sharing an artifact
// root.
package lock

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nightlyone/lockfile"
)

const pollInterval = 50 * time.Millisecond

// Lock is an advisory lock keyed by an artifact path (spec §5: "Each
// artifact path has an associated advisory file lock").
type Lock struct {
	lf lockfile.Lockfile
}

// New creates a lock for artifactPath, stored as a sibling ".lock"
// file. nightlyone/lockfile requires an absolute path.
func New(artifactPath string) (*Lock, error) {
	abs, err := filepath.Abs(artifactPath + ".lock")
	if err != nil {
		return nil, fmt.Errorf("lock: resolving %s: %w", artifactPath, err)
	}
	lf, err := lockfile.New(abs)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	return &Lock{lf: lf}, nil
}

// Acquire blocks until the lock is held or ctx is done. A second
// process requesting the same fingerprint blocks here until the first
// finishes and releases (spec §5's "at-most-one concurrent computation
// per fingerprint").
func (l *Lock) Acquire(ctx context.Context) error {
	for {
		err := l.lf.TryLock()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return fmt.Errorf("lock: acquiring: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *Lock) Unlock() error {
	return l.lf.Unlock()
}

// isRetryable reports whether err indicates the lock is held by another
// live process (worth polling) rather than a permanent failure (bad
// path, permissions).
func isRetryable(err error) bool {
	return err == lockfile.ErrBusy || err == lockfile.ErrNotExist || err == lockfile.ErrDeadOwner
}

// WithLock is the hold-while-scope helper spec §9 recommends: acquire,
// run fn, always release.
func WithLock(ctx context.Context, artifactPath string, fn func() error) error {
	l, err := New(artifactPath)
	if err != nil {
		return err
	}
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}
