package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookkeeper/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestLRU(capacity int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.Advance(30 * time.Second)
	c.Set("b", "3")
	clock.Advance(45 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 0, c.CleanExpired())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Len())
}

func TestLRUAddKeepsFirstLiveValue(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	v, added := c.Add("k", "first")
	assert.True(t, added)
	assert.Equal(t, "first", v)

	v, added = c.Add("k", "second")
	assert.False(t, added)
	assert.Equal(t, "first", v)

	clock.Advance(2 * time.Minute)
	v, added = c.Add("k", "third")
	assert.True(t, added)
	assert.Equal(t, "third", v)
}

func TestIdempotencyIsScopedToSession(t *testing.T) {
	idem := NewIdempotency(10, time.Minute)
	alice := core.Session{AppName: "app", UserID: "alice", SessionID: "s1"}
	bob := core.Session{AppName: "app", UserID: "bob", SessionID: "s1"}

	_, ok := idem.Lookup(alice, "key-1")
	assert.False(t, ok)

	assert.Equal(t, "saved once", idem.Remember(alice, "key-1", "saved once"))
	assert.Equal(t, "saved once", idem.Remember(alice, "key-1", "saved twice"))

	got, ok := idem.Lookup(alice, "key-1")
	require.True(t, ok)
	assert.Equal(t, "saved once", got)

	_, ok = idem.Lookup(bob, "key-1")
	assert.False(t, ok)

	// An empty key disables deduplication.
	assert.Equal(t, "x", idem.Remember(alice, "", "x"))
	_, ok = idem.Lookup(alice, "")
	assert.False(t, ok)
	assert.Equal(t, 1, idem.Len())
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	c, clock := newTestLRU(10, time.Millisecond)
	c.Set("a", "1")
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, time.Millisecond, c)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
