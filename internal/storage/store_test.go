package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.capfs")
	store, err := Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.capfs")

	store, err := Create(path)
	require.NoError(t, err)

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	id := store.InstanceID()
	assert.NotEmpty(t, id)

	// A fresh store holds exactly the root.
	count, err := store.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Close())

	// Reopen: identity survives.
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, id, reopened.InstanceID())
}

func TestCreateExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.capfs")
	store, err := Create(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = Create(path)
	assert.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.capfs"))
	assert.Error(t, err)
}

func TestOpenWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.capfs")
	store, err := Create(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = Open(path)
	assert.Error(t, err, "second opener must fail while the lock is held")
}

func TestCloseReleasesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.capfs")
	store, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestFSInfoRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.bunDB.SetFSInfo(ctx, "label", "scratch"))
	got, err := store.bunDB.GetFSInfo(ctx, "label")
	require.NoError(t, err)
	assert.Equal(t, "scratch", got)

	// Upsert replaces.
	require.NoError(t, store.bunDB.SetFSInfo(ctx, "label", "archive"))
	got, err = store.bunDB.GetFSInfo(ctx, "label")
	require.NoError(t, err)
	assert.Equal(t, "archive", got)

	// Missing keys read as empty, not as an error.
	got, err = store.bunDB.GetFSInfo(ctx, "no-such-key")
	require.NoError(t, err)
	assert.Empty(t, got)
}
