package walletreg

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandle struct {
	name string
	path string
}

func (h *testHandle) Name() string { return h.name }
func (h *testHandle) Path() string { return h.path }

func newHandle(name string) *testHandle {
	return &testHandle{name: name, path: "/wallets/" + name}
}

func TestRegistryOrder(t *testing.T) {
	t.Parallel()

	reg := New[*testHandle]()
	a, b, c := newHandle("a"), newHandle("b"), newHandle("c")
	for _, h := range []*testHandle{a, b, c} {
		require.NoError(t, reg.Add(h))
	}
	require.Equal(t, []*testHandle{a, b, c}, reg.Wallets())

	require.True(t, reg.Remove(b))
	require.False(t, reg.Remove(b))
	require.Equal(t, []*testHandle{a, c}, reg.Wallets())

	// Re-adding appends at the end.
	require.NoError(t, reg.Add(b))
	require.Equal(t, []*testHandle{a, c, b}, reg.Wallets())

	got, ok := reg.Get(c.Path())
	require.True(t, ok)
	require.Same(t, c, got)

	last, ok := reg.PopBack()
	require.True(t, ok)
	require.Same(t, b, last)
	require.False(t, reg.Contains(b))
	require.Equal(t, 2, reg.Len())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := New[*testHandle]()
	a := newHandle("a")
	require.NoError(t, reg.Add(a))

	// Same path through a different handle.
	dup := &testHandle{name: "other", path: a.Path()}
	require.ErrorIs(t, reg.Add(dup), ErrDuplicate)
	require.ErrorIs(t, reg.Add(a), ErrDuplicate)

	// Removing a different handle with the same path is a no-op.
	require.False(t, reg.Remove(dup))
	require.True(t, reg.Contains(a))
	require.Equal(t, 1, reg.Len())

	require.ErrorIs(t, reg.Add(nil), ErrNilHandle)
	require.False(t, reg.Remove(nil))
	require.False(t, reg.Contains(nil))
}

func TestRegistryPopBackEmpty(t *testing.T) {
	t.Parallel()

	reg := New[*testHandle]()
	h, ok := reg.PopBack()
	require.False(t, ok)
	require.Nil(t, h)
	require.Empty(t, reg.Wallets())
}

// TestRegistryConcurrentAccess exercises adds, removals and snapshots from
// several goroutines; run with -race.
func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()

	const workers, perWorker = 8, 50
	reg := New[*testHandle]()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			for i := 0; i < perWorker; i++ {
				h := newHandle(fmt.Sprintf("w%d-%d", w, i))
				require.NoError(t, reg.Add(h))

				for _, s := range reg.Wallets() {
					_ = s.Name()
				}

				if i%2 == 0 {
					require.True(t, reg.Remove(h))
				}
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, workers*perWorker/2, reg.Len())
}
