// Package lock provides the short-lived mutual-exclusion lock that guards
// read-modify-write access to shared stores. Waits are always bounded; every
// caller decides what to do when acquisition fails (the dedup gate fails
// open, the batch worker skips its cycle).
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotAcquired is returned when the lock could not be acquired within the
// bounded wait.
var ErrNotAcquired = errors.New("lock: not acquired within wait budget")

// Locker is a mutual-exclusion lock with a bounded wait. Release must be
// called exactly once after a successful Acquire, normally via defer.
type Locker interface {
	Acquire(ctx context.Context, wait time.Duration) (release func(), err error)
}

// Mutex is an in-process Locker backed by a buffered channel, used for tests
// and single-process deployments.
type Mutex struct {
	ch chan struct{}
}

// NewMutex creates an unlocked in-process Locker.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free, the wait elapses, or ctx is done.
func (m *Mutex) Acquire(ctx context.Context, wait time.Duration) (func(), error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case m.ch <- struct{}{}:
		return func() { <-m.ch }, nil
	case <-timer.C:
		return nil, ErrNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FileLock is a cross-process Locker backed by an exclusive-create lock file.
// A lock older than staleAfter is treated as abandoned by a crashed process
// and taken over.
type FileLock struct {
	path       string
	staleAfter time.Duration
	pollEvery  time.Duration
}

// NewFileLock creates a file-based Locker at path.
func NewFileLock(path string, staleAfter time.Duration) *FileLock {
	return &FileLock{
		path:       path,
		staleAfter: staleAfter,
		pollEvery:  200 * time.Millisecond,
	}
}

// Acquire polls for the lock file until it can be created exclusively, the
// wait elapses, or ctx is done.
func (f *FileLock) Acquire(ctx context.Context, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)

	for {
		fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(fh, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			_ = fh.Close()
			return func() { _ = os.Remove(f.path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lock: create %s: %w", f.path, err)
		}

		if info, statErr := os.Stat(f.path); statErr == nil &&
			f.staleAfter > 0 && time.Since(info.ModTime()) > f.staleAfter {
			_ = os.Remove(f.path)
			continue
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-time.After(f.pollEvery):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
