package vfs_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capfs/internal/vfs"
	"capfs/internal/vfstest"
)

func TestMemFSConformance(t *testing.T) {
	vfstest.Run(t, func(t *testing.T) vfs.Backend {
		return vfs.NewMemFS()
	})
}

func TestMemFSCancelledContext(t *testing.T) {
	t.Parallel()
	fs := vfs.NewMemFS()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fs.Stat(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = fs.Create(ctx, "/x", vfs.KindFile, 0o644)
	assert.ErrorIs(t, err, context.Canceled)
}

// Shared-instance smoke test: concurrent writers to distinct files plus
// concurrent readers must not race or lose updates. Run with -race.
func TestMemFSConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := vfs.NewMemFS()

	const workers = 8
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("/file-%d", i)
			h, err := fs.Create(ctx, path, vfs.KindFile, 0o644)
			assert.NoError(t, err)
			for j := 0; j < 20; j++ {
				_, err := fs.Write(ctx, h, uint64(j), []byte{byte(j)})
				assert.NoError(t, err)
				_, err = fs.Read(ctx, h, 0, j+1)
				assert.NoError(t, err)
				_, err = fs.Stat(ctx, path)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	root, err := fs.Open(ctx, "/", vfs.KindDir, 0)
	require.NoError(t, err)
	entries, err := fs.ReadDir(ctx, root)
	require.NoError(t, err)
	assert.Len(t, entries, workers)
	for _, st := range entries {
		assert.Equal(t, uint64(20), st.Size)
		assert.Equal(t, uint32(20), st.Qid.Version)
	}
}

func TestMemFSIndependentInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := vfs.NewMemFS()
	b := vfs.NewMemFS()

	_, err := a.Create(ctx, "/only-in-a", vfs.KindFile, 0o644)
	require.NoError(t, err)
	_, err = b.Stat(ctx, "/only-in-a")
	assert.Error(t, err)
}
