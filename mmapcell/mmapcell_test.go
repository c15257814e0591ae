package mmapcell

import (
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type counter struct {
	value atomic.Uint64
}

func TestCellCreatesZeroFilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell")

	c, err := New[counter](path)
	require.NoError(t, err)
	defer c.Close()

	require.Zero(t, c.Get().value.Load())
}

func TestCellSharesMappingAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell")

	a, err := New[counter](path)
	require.NoError(t, err)
	defer a.Close()

	a.GetMut().value.Store(42)

	b, err := New[counter](path)
	require.NoError(t, err)
	defer b.Close()

	require.EqualValues(t, 42, b.Get().value.Load())
}

func TestCellConcurrentIncrement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell")

	c, err := New[counter](path)
	require.NoError(t, err)
	defer c.Close()

	const goroutines = 16
	const perGoroutine = 1000

	var wg errgroup.Group
	for i := 0; i < goroutines; i++ {
		wg.Go(func() error {
			for j := 0; j < perGoroutine; j++ {
				c.GetMut().value.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, wg.Wait())

	require.EqualValues(t, goroutines*perGoroutine, c.Get().value.Load())
}

func TestRawGrowsUndersizedExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw")

	small, err := OpenRaw(path, 8)
	require.NoError(t, err)
	require.Len(t, small.Data, 8)
	require.NoError(t, small.Close())

	big, err := OpenRaw(path, 64)
	require.NoError(t, err)
	defer big.Close()
	require.Len(t, big.Data, 64)
}
