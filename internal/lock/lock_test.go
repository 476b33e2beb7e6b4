package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexAcquireRelease(t *testing.T) {
	m := NewMutex()
	ctx := context.Background()

	release, err := m.Acquire(ctx, time.Second)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	release2, err := m.Acquire(ctx, time.Second)
	require.NoError(t, err)
	release2()
}

func TestMutexContextCancel(t *testing.T) {
	m := NewMutex()
	release, err := m.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Acquire(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.lock")
	f := NewFileLock(path, time.Minute)
	ctx := context.Background()

	release, err := f.Acquire(ctx, time.Second)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	// A second locker on the same path cannot get in.
	other := NewFileLock(path, time.Minute)
	other.pollEvery = 5 * time.Millisecond
	_, err = other.Acquire(ctx, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileLockStaleTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999 stale\n"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	f := NewFileLock(path, time.Minute)
	release, err := f.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	release()
}
