package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (f *fakeTransport) TrySend(frame any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestRegisterReturnsPreviousTransport(t *testing.T) {
	r := New()
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}

	require.Nil(t, r.Register("alice", t1))
	prev := r.Register("alice", t2)
	require.Same(t, t1, prev)

	cur, ok := r.Lookup("alice")
	require.True(t, ok)
	require.Same(t, t2, cur)
	require.Equal(t, 1, r.Len())
}

func TestUnregisterIsConditional(t *testing.T) {
	r := New()
	t1 := &fakeTransport{}
	t2 := &fakeTransport{}

	r.Register("alice", t1)
	r.Register("alice", t2)

	// stale handler cleaning up after being superseded must not evict t2
	r.Unregister("alice", t1)
	cur, ok := r.Lookup("alice")
	require.True(t, ok)
	require.Same(t, t2, cur)

	r.Unregister("alice", t2)
	_, ok = r.Lookup("alice")
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestSnapshotSortedCopy(t *testing.T) {
	r := New()
	for _, a := range []string{"carol", "alice", "bob"} {
		r.Register(a, &fakeTransport{})
	}
	snap := r.Snapshot()
	require.Equal(t, []string{"alice", "bob", "carol"}, snap)

	// mutating the snapshot must not affect the registry
	snap[0] = "mallory"
	require.Equal(t, []string{"alice", "bob", "carol"}, r.Snapshot())
}

func TestConcurrentRegisterSingleOwner(t *testing.T) {
	r := New()
	const n = 50
	transports := make([]*fakeTransport, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		transports[i] = &fakeTransport{}
		wg.Add(1)
		go func(ft *fakeTransport) {
			defer wg.Done()
			if prev := r.Register("alice", ft); prev != nil {
				_ = prev.Close()
			}
		}(transports[i])
	}
	wg.Wait()

	require.Equal(t, 1, r.Len())
	cur, ok := r.Lookup("alice")
	require.True(t, ok)
	// exactly one transport survived; it must be one of ours
	found := false
	for _, ft := range transports {
		if cur == Transport(ft) {
			found = true
			break
		}
	}
	require.True(t, found)
}

func TestConnectionsCopy(t *testing.T) {
	r := New()
	for i := 0; i < 3; i++ {
		r.Register(fmt.Sprintf("user%d", i), &fakeTransport{})
	}
	conns := r.Connections()
	require.Len(t, conns, 3)
	for _, c := range conns {
		require.NotNil(t, c.Transport)
		require.False(t, c.EstablishedAt.IsZero())
	}
}
