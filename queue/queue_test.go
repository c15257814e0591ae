package queue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/manager"
)

func newTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ring")
	params := datapage.Params{ExpectedMessageSize: 64, Slots: 8, Groups: 4}
	mgr, err := manager.New(dir, params)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestSenderPushRotatesOnFullPage(t *testing.T) {
	mgr := newTestManager(t)
	sender, err := NewSender(mgr)
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		require.NoError(t, sender.Push([]byte{byte(i)}))
	}

	stats := mgr.Stats()
	require.GreaterOrEqual(t, stats.PageCount, uint64(1))
}

// S4: grouped fan-out — two receivers in the same group split the stream,
// union equals every message pushed, intersection is empty.
func TestGroupedReceiversFanOutWithoutOverlap(t *testing.T) {
	mgr := newTestManager(t)
	sender, err := NewSender(mgr)
	require.NoError(t, err)
	require.NoError(t, sender.Push([]byte("a")))
	require.NoError(t, sender.Push([]byte("b")))
	require.NoError(t, sender.Push([]byte("c")))

	r1, err := NewGroupedReceiver(0, mgr)
	require.NoError(t, err)
	r2, err := NewGroupedReceiver(0, mgr)
	require.NoError(t, err)

	seen := map[string]int{}
	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		var data []byte
		var err error
		if i%2 == 0 {
			data, err = r1.Pop()
		} else {
			data, err = r2.Pop()
		}
		require.NoError(t, err)
		got[string(data)] = true
		seen[string(data)]++
	}

	require.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, got)
	for _, count := range seen {
		require.Equal(t, 1, count)
	}
}

// S5: anonymous duplication — independent receivers each see the full
// stream.
func TestAnonymousReceiversEachSeeFullStream(t *testing.T) {
	mgr := newTestManager(t)
	sender, err := NewSender(mgr)
	require.NoError(t, err)
	require.NoError(t, sender.Push([]byte("x")))
	require.NoError(t, sender.Push([]byte("y")))

	r1, err := NewAnonymousReceiver(mgr)
	require.NoError(t, err)
	r2, err := NewAnonymousReceiver(mgr)
	require.NoError(t, err)

	for _, r := range []*AnonymousReceiver{r1, r2} {
		data, err := r.Pop()
		require.NoError(t, err)
		require.Equal(t, "x", string(data))

		data, err = r.Pop()
		require.NoError(t, err)
		require.Equal(t, "y", string(data))
	}
}

// S6: rotation under a retention bound. A receiver already holding a
// reference to a page keeps reading it successfully even after the
// manager evicts that page's file from disk; a receiver that falls behind
// far enough that its next page was itself evicted is clamped forward to
// whatever is still retained, per GetOrCreateDataPage's documented
// behavior.
func TestRotationWithRetentionStillServesHeldPages(t *testing.T) {
	mgr := newTestManager(t)
	mgr.SetMaxDataPages(2)

	sender, err := NewSender(mgr)
	require.NoError(t, err)

	anon, err := NewAnonymousReceiver(mgr)
	require.NoError(t, err)

	// Fill page 0 (8 slots) and force a rotation to page 1; page 0 is still
	// within the retention window of 2, so nothing is evicted yet.
	for i := 0; i < 9; i++ {
		require.NoError(t, sender.Push([]byte{byte(i)}))
	}

	// anon still holds page 0; it reads all 8 of its messages even though
	// the sender has already moved on.
	for i := 0; i < 8; i++ {
		data, err := anon.Pop()
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, data)
	}

	// Fill page 1 and page 2 and spill into page 3, which evicts the files of
	// pages 0 and 1 from disk. anon's mapping of page 0 was already fully
	// drained above, so this doesn't affect it; the assertion here is that
	// eviction of pages anon is no longer touching doesn't error the sender.
	for i := 9; i < 26; i++ {
		require.NoError(t, sender.Push([]byte{byte(i)}))
	}
	require.Greater(t, mgr.Stats().Oldest, uint64(0))

	// anon now rotates off its drained page 0 and is clamped forward to
	// whatever page is still the oldest retained one, rather than erroring.
	data, err := anon.Pop()
	require.NoError(t, err)
	require.NotNil(t, data)
}
