package version

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/foundryforge/agentmem/internal/atomicio"
	"github.com/foundryforge/agentmem/internal/errs"
)

type doc struct {
	Count int `json:"count"`
}

func TestSnapshotAndIsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := atomicio.WriteJSON(path, doc{Count: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := Snapshot(path)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !IsCurrent(v) {
		t.Fatal("expected freshly snapshotted file to be current")
	}

	if err := atomicio.WriteJSON(path, doc{Count: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if IsCurrent(v) {
		t.Fatal("expected snapshot to be stale after the file changed")
	}
}

func TestCheckReturnsConflictCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	atomicio.WriteJSON(path, doc{Count: 1})
	v, _ := Snapshot(path)
	atomicio.WriteJSON(path, doc{Count: 2})

	err := Check(v)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if errs.CodeOf(err) != errs.CodeConflict {
		t.Errorf("expected CodeConflict, got %v", errs.CodeOf(err))
	}
}

func TestSafeUpdateAppliesModifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	atomicio.WriteJSON(path, doc{Count: 1})

	var out doc
	err := SafeUpdate(path, &out, func(d *doc) error {
		d.Count++
		return nil
	}, 3)
	if err != nil {
		t.Fatalf("safe update: %v", err)
	}

	var final doc
	if err := atomicio.ReadJSON(path, &final); err != nil {
		t.Fatalf("read: %v", err)
	}
	if final.Count != 2 {
		t.Errorf("expected count 2, got %d", final.Count)
	}
}

// TestSafeUpdateSerializesConcurrentWriters proves the re-check-and-write
// happens under a lock: without it, two goroutines racing past Check and
// both writing would lose an increment.
func TestSafeUpdateSerializesConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	atomicio.WriteJSON(path, doc{Count: 0})

	const n = 10
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out doc
			err := SafeUpdate(path, &out, func(d *doc) error {
				d.Count++
				return nil
			}, 20)
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("safe update: %v", err)
	}

	var final doc
	if err := atomicio.ReadJSON(path, &final); err != nil {
		t.Fatalf("read: %v", err)
	}
	if final.Count != n {
		t.Errorf("expected count %d after %d concurrent increments, got %d", n, n, final.Count)
	}
}

func TestSafeUpdatePropagatesModifierError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	atomicio.WriteJSON(path, doc{Count: 1})

	var out doc
	boom := errs.New(errs.CodeInvalidInput, "boom")
	err := SafeUpdate(path, &out, func(d *doc) error {
		return boom
	}, 3)
	if !errors.Is(err, boom) {
		t.Fatalf("expected modifier error to propagate, got %v", err)
	}
}
