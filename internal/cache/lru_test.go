package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute, clockwork.NewFakeClock())

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	// "b" is now least recently used.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("overwrite: got %d", v)
	}
}

func TestLRU_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewLRU[int, string](10, time.Minute, clock)
	c.Set(1, "one")
	c.Set(2, "two")

	clock.Advance(30 * time.Second)
	c.Set(3, "three")
	clock.Advance(45 * time.Second)

	if _, ok := c.Get(1); ok {
		t.Error("entry 1 should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if v, ok := c.Get(3); !ok || v != "three" {
		t.Errorf("Get(3) = %q, %v", v, ok)
	}
}

func TestLRU_DeleteAndPurge(t *testing.T) {
	c := NewLRU[string, int](0, time.Minute, nil)
	c.Set("x", 1)
	c.Delete("x")
	c.Delete("missing")
	if c.Len() != 0 {
		t.Fatalf("Len after delete = %d", c.Len())
	}

	c.Set("y", 2)
	c.Purge()
	if _, ok := c.Get("y"); ok || c.Len() != 0 {
		t.Error("Purge should drop everything")
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewLRU[string, int](10, time.Second, clock)
	m := NewManager(clock)
	m.Register(c)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Second)

	if n := m.Sweep(); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
}

func TestManager_StartStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewLRU[string, int](10, time.Second, clock)
	m := NewManager(clock)
	m.Register(c)
	c.Set("a", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.Start(ctx, time.Minute)
	m.Start(ctx, time.Minute) // no second loop

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}
	clock.Advance(time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("expired entry should be swept by the loop")
	}
	m.Stop()
	m.Stop()
}
