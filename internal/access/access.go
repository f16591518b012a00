// Package access tracks per-entry access counts and last-accessed times,
// persisted in batches at the end of each search call.
package access

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/foundryforge/agentmem/internal/atomicio"
)

// Stat is one entry's access record.
type Stat struct {
	Count      int       `json:"access_count"`
	LastAccess time.Time `json:"last_accessed"`
}

// Tracker holds access_counts.json in memory, batching writes.
type Tracker struct {
	path  string
	mu    sync.Mutex
	data  map[string]Stat
	dirty bool
}

// New returns a Tracker for workspace/access_counts.json.
func New(workspaceDir string) *Tracker {
	return &Tracker{
		path: filepath.Join(workspaceDir, "access_counts.json"),
		data: map[string]Stat{},
	}
}

// Load reads access_counts.json if present.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !atomicio.Exists(t.path) {
		return nil
	}
	var data map[string]Stat
	if err := atomicio.ReadJSON(t.path, &data); err != nil {
		return err
	}
	t.data = data
	return nil
}

// Record increments id's access count and bumps its last-accessed time.
// Batched in memory; call Flush to persist.
func (t *Tracker) Record(id string, when time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.data[id]
	s.Count++
	s.LastAccess = when
	t.data[id] = s
	t.dirty = true
}

// Get returns id's current access stat.
func (t *Tracker) Get(id string) (Stat, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.data[id]
	return s, ok
}

// Forget drops id's tracked stat, used by forget/purge.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.data[id]; ok {
		delete(t.data, id)
		t.dirty = true
	}
}

// Flush persists accumulated stats if dirty.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := atomicio.WriteJSON(t.path, t.data); err != nil {
		return err
	}
	t.dirty = false
	return nil
}
