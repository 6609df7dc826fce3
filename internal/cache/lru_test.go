package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("overwrite: got %d", v)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted key still present")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a") // b is now the oldest
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clk := newClock()
	c := NewLRUCacheWithClock[int](10, time.Minute, clk.now)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.advance(30 * time.Second)
	c.Set("b", 3) // refreshes b's ttl

	clk.advance(30 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a expired exactly at ttl")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Fatalf("Get(b) = %d, %v", v, ok)
	}

	clk.advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after cleanup", c.Size())
	}
}

func TestLRUCache_DeleteFunc(t *testing.T) {
	c := NewLRUCache[int64](10, time.Minute)
	c.Set("x", 1)
	c.Set("y", 2)
	c.Set("z", 1)

	if n := c.DeleteFunc(func(v int64) bool { return v == 1 }); n != 2 {
		t.Fatalf("DeleteFunc = %d, want 2", n)
	}
	if _, ok := c.Get("y"); !ok {
		t.Fatal("y should survive")
	}
}

func TestLRUCache_MinimumSize(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("zero max size must still hold one entry")
	}
}

func TestManager_CleanAllAndStop(t *testing.T) {
	clk := newClock()
	a := NewLRUCacheWithClock[int](10, time.Second, clk.now)
	b := NewLRUCacheWithClock[string](10, time.Hour, clk.now)
	a.Set("k", 1)
	b.Set("k", "v")

	m := NewManager()
	m.Register("a", a)
	m.Register("b", b)

	clk.advance(time.Minute)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup loop")
	}
}
