package cache

import (
	"bytes"
	"testing"
	"time"

	applog "tesouraria/internal/log"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Fatalf("expected fresh hit, got %d %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("x"); ok {
		t.Fatal("expected x to be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry left to clean, got %d", n)
	}

	st := c.Stats()
	if st.Size != 0 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRUCache_OverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("k", "old")
	c.Set("k", "new")
	if v, _ := c.Get("k"); v != "new" || c.Size() != 1 {
		t.Fatalf("expected overwrite, got %q size=%d", v, c.Size())
	}
	c.Delete("k")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestManager_Sweep(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Minute)

	m := NewManager(applog.New(applog.Config{Output: &bytes.Buffer{}}))
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
