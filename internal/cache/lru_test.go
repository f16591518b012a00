package cache

import "testing"

func TestPutAndGet(t *testing.T) {
	c := New(2)
	c.Put("a", []string{"1", "2"})

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0] != "1" {
		t.Errorf("unexpected value: %v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(2)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put("a", []string{"1"})
	c.Put("b", []string{"2"})
	c.Put("c", []string{"3"}) // evicts "a" since it's untouched

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected 'a' to have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected 'b' to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected 'c' to survive")
	}
}

func TestGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put("a", []string{"1"})
	c.Put("b", []string{"2"})
	c.Get("a")             // promote a
	c.Put("c", []string{"3"}) // should evict b, not a

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to have been evicted after 'a' was promoted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive")
	}
}

func TestClear(t *testing.T) {
	c := New(4)
	c.Put("a", []string{"1"})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got len %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected 'a' to be gone after clear")
	}
}

func TestPutUpdatesExistingKey(t *testing.T) {
	c := New(4)
	c.Put("a", []string{"1"})
	c.Put("a", []string{"2"})
	got, _ := c.Get("a")
	if len(got) != 1 || got[0] != "2" {
		t.Errorf("expected updated value [2], got %v", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected len 1 after update, got %d", c.Len())
	}
}
