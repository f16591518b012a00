package access

import (
	"testing"
	"time"
)

func TestRecordAndGet(t *testing.T) {
	tr := New(t.TempDir())
	now := time.Now()
	tr.Record("e1", now)
	tr.Record("e1", now.Add(time.Minute))

	stat, ok := tr.Get("e1")
	if !ok {
		t.Fatal("expected stat to exist")
	}
	if stat.Count != 2 {
		t.Errorf("expected count 2, got %d", stat.Count)
	}
}

func TestFlushOnlyWritesWhenDirty(t *testing.T) {
	dir := t.TempDir()
	tr := New(dir)
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush with no changes: %v", err)
	}

	tr.Record("e1", time.Now())
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	fresh := New(dir)
	if err := fresh.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	stat, ok := fresh.Get("e1")
	if !ok || stat.Count != 1 {
		t.Fatalf("expected persisted count 1, got ok=%v stat=%+v", ok, stat)
	}
}

func TestForgetRemovesStat(t *testing.T) {
	tr := New(t.TempDir())
	tr.Record("e1", time.Now())
	tr.Forget("e1")

	if _, ok := tr.Get("e1"); ok {
		t.Fatal("expected stat to be removed")
	}
}

func TestLoadOnMissingFileIsNoop(t *testing.T) {
	tr := New(t.TempDir())
	if err := tr.Load(); err != nil {
		t.Fatalf("expected no error loading a missing file, got: %v", err)
	}
}
