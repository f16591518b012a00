// Package shard routes entries to (year-month, category) shard files and
// manages their lazy load and dirty-tracked persistence.
package shard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/foundryforge/agentmem/internal/atomicio"
	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/model"
)

// DefaultMaxShardBytes is the size above which a shard SHOULD be split by
// the compactor.
const DefaultMaxShardBytes = 2 << 20

// Key identifies one shard bucket.
type Key struct {
	YearMonth string // "YYYY-MM"
	Category  string
}

func (k Key) String() string { return k.YearMonth + "-" + k.Category }

// KeyOf returns the shard key for an entry.
func KeyOf(e *model.Entry) Key {
	return Key{YearMonth: e.Created.UTC().Format("2006-01"), Category: e.Category}
}

// ParseKey recovers a Key from its "<YYYY-MM>-<category>" file stem.
func ParseKey(stem string) (Key, error) {
	parts := strings.SplitN(stem, "-", 3)
	if len(parts) < 3 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Key{}, errs.Errorf(errs.CodeStoreCorrupt, "malformed shard stem %q", stem)
	}
	if _, err := strconv.ParseUint(parts[0]+parts[1], 10, 64); err != nil {
		return Key{}, errs.Errorf(errs.CodeStoreCorrupt, "malformed shard stem %q", stem)
	}
	return Key{YearMonth: parts[0] + "-" + parts[1], Category: parts[2]}, nil
}

// Manager owns shard files under <workspace>/shards.
type Manager struct {
	dir      string
	maxBytes int64
	mu       sync.Mutex
	loaded   map[Key][]*model.Entry
	dirty    map[Key]bool
}

// New returns a Manager rooted at workspace/shards. It does not touch disk.
func New(workspaceDir string, maxShardBytes int64) *Manager {
	if maxShardBytes <= 0 {
		maxShardBytes = DefaultMaxShardBytes
	}
	return &Manager{
		dir:      filepath.Join(workspaceDir, "shards"),
		maxBytes: maxShardBytes,
		loaded:   map[Key][]*model.Entry{},
		dirty:    map[Key]bool{},
	}
}

func (m *Manager) path(k Key) string {
	return filepath.Join(m.dir, k.String()+".json")
}

// LoadAll reads every shard file under the shards directory eagerly. Used at
// startup to populate the authoritative in-memory map. A shard that has been
// split by Compact lives as a primary "<key>.json" file plus one or more
// "<key>~N.json" overflow siblings; LoadAll merges them back under their
// shared canonical Key.
func (m *Manager) LoadAll() (map[Key][]*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "create shards dir")
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "read shards dir")
	}
	out := map[Key][]*model.Entry{}
	seen := map[Key]bool{}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		stem := strings.TrimSuffix(de.Name(), ".json")
		if idx := strings.Index(stem, "~"); idx >= 0 {
			stem = stem[:idx]
		}
		k, err := ParseKey(stem)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		list, err := m.readAllPartsLocked(k)
		if err != nil {
			return nil, err
		}
		out[k] = list
		m.loaded[k] = list
	}
	return out, nil
}

// readAllPartsLocked reads k's primary shard file and any split-off overflow
// siblings, concatenating them into one entry list. Callers hold m.mu.
func (m *Manager) readAllPartsLocked(k Key) ([]*model.Entry, error) {
	var out []*model.Entry
	primary := m.path(k)
	if atomicio.Exists(primary) {
		var wire []*model.Entry
		if err := atomicio.ReadJSON(primary, &wire); err != nil {
			return nil, err
		}
		out = append(out, wire...)
	}
	matches, err := filepath.Glob(filepath.Join(m.dir, k.String()+"~*.json"))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "glob split shards for "+k.String())
	}
	sort.Strings(matches)
	for _, p := range matches {
		var wire []*model.Entry
		if err := atomicio.ReadJSON(p, &wire); err != nil {
			return nil, err
		}
		out = append(out, wire...)
	}
	return out, nil
}

// EnsureLoaded lazily loads k's shard file (and any split siblings) if not
// already in memory.
func (m *Manager) EnsureLoaded(k Key) ([]*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if list, ok := m.loaded[k]; ok {
		return list, nil
	}
	list, err := m.readAllPartsLocked(k)
	if err != nil {
		return nil, err
	}
	m.loaded[k] = list
	return list, nil
}

// MarkDirty records that k's in-memory contents differ from disk.
func (m *Manager) MarkDirty(k Key, entries []*model.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[k] = entries
	m.dirty[k] = true
}

// FlushDirty persists every shard marked dirty, atomically, and clears the
// dirty set. Returns the list of shard keys written.
func (m *Manager) FlushDirty() ([]Key, error) {
	m.mu.Lock()
	dirtyKeys := make([]Key, 0, len(m.dirty))
	for k := range m.dirty {
		dirtyKeys = append(dirtyKeys, k)
	}
	m.mu.Unlock()

	sort.Slice(dirtyKeys, func(i, j int) bool { return dirtyKeys[i].String() < dirtyKeys[j].String() })

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "create shards dir")
	}

	for _, k := range dirtyKeys {
		m.mu.Lock()
		list := m.loaded[k]
		m.mu.Unlock()

		// The in-memory list holds every part of a split shard, so it is
		// written whole to the primary file and the overflow siblings go.
		siblings, err := filepath.Glob(filepath.Join(m.dir, k.String()+"~*.json"))
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeIOFailure, "glob split shards for "+k.String())
		}
		for _, p := range siblings {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return nil, errs.Wrap(err, errs.CodeIOFailure, "remove overflow shard "+k.String())
			}
		}
		if len(list) == 0 {
			if err := os.Remove(m.path(k)); err != nil && !os.IsNotExist(err) {
				return nil, errs.Wrap(err, errs.CodeIOFailure, "remove empty shard "+k.String())
			}
		} else {
			sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
			if err := atomicio.WriteJSON(m.path(k), list); err != nil {
				return nil, err
			}
		}
		m.mu.Lock()
		delete(m.dirty, k)
		m.mu.Unlock()
	}
	return dirtyKeys, nil
}

// NeedsSplit reports whether k's persisted shard file exceeds maxBytes.
func (m *Manager) NeedsSplit(k Key) bool {
	info, err := os.Stat(m.path(k))
	if err != nil {
		return false
	}
	return info.Size() > m.maxBytes
}

// SplitHint returns a secondary key (id hash prefix) a compactor can use to
// split an oversized shard into two roughly equal files.
func SplitHint(id string) string {
	if len(id) == 0 {
		return "0"
	}
	return fmt.Sprintf("%c", id[0])
}

// SplitOversized scans every primary shard file on disk and, for any whose
// size exceeds maxBytes, repartitions its entries by SplitHint into a
// primary file (id hash-prefix 0-7) and one overflow sibling (8-f). The
// repartition is computed fully in memory and then written as a batch, so a
// reader never observes a shard mid-split. Returns the keys that were split.
func (m *Manager) SplitOversized() ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.CodeIOFailure, "read shards dir")
	}

	var split []Key
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		stem := strings.TrimSuffix(de.Name(), ".json")
		if strings.Contains(stem, "~") {
			continue
		}
		k, err := ParseKey(stem)
		if err != nil {
			return nil, err
		}
		if !m.NeedsSplit(k) {
			continue
		}
		list, err := m.readAllPartsLocked(k)
		if err != nil {
			return nil, err
		}
		if err := m.writeSplitLocked(k, list); err != nil {
			return nil, err
		}
		m.loaded[k] = list
		delete(m.dirty, k)
		split = append(split, k)
	}
	sort.Slice(split, func(i, j int) bool { return split[i].String() < split[j].String() })
	return split, nil
}

// writeSplitLocked partitions list by id hash-prefix into a primary file
// (buckets 0-7) and an overflow sibling "<key>~2.json" (buckets 8-f), then
// writes both. Callers hold m.mu.
func (m *Manager) writeSplitLocked(k Key, list []*model.Entry) error {
	var primary, overflow []*model.Entry
	for _, e := range list {
		if splitBucket(e.ID) < 8 {
			primary = append(primary, e)
		} else {
			overflow = append(overflow, e)
		}
	}
	sort.Slice(primary, func(i, j int) bool { return primary[i].ID < primary[j].ID })
	sort.Slice(overflow, func(i, j int) bool { return overflow[i].ID < overflow[j].ID })

	overflowPath := filepath.Join(m.dir, k.String()+"~2.json")
	if len(overflow) == 0 {
		if err := os.Remove(overflowPath); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(err, errs.CodeIOFailure, "remove empty overflow shard "+k.String())
		}
	} else if err := atomicio.WriteJSON(overflowPath, overflow); err != nil {
		return err
	}

	if len(primary) == 0 {
		if err := os.Remove(m.path(k)); err != nil && !os.IsNotExist(err) {
			return errs.Wrap(err, errs.CodeIOFailure, "remove empty shard "+k.String())
		}
	} else if err := atomicio.WriteJSON(m.path(k), primary); err != nil {
		return err
	}
	return nil
}

// splitBucket returns the 0-15 hash bucket SplitHint assigns id to.
func splitBucket(id string) int {
	hint := SplitHint(id)
	v, err := strconv.ParseInt(hint, 16, 64)
	if err != nil {
		return 0
	}
	return int(v)
}
