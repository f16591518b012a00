// Package wal implements the append-only write-ahead log that makes
// ingest and delete operations crash-safe between shard flushes.
package wal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/model"
)

// DefaultFlushCount and DefaultFlushBytes are the thresholds at which the
// caller should flush the log, per the configured policy.
const (
	DefaultFlushCount = 50
	DefaultFlushBytes = 1 << 20
)

// Op identifies the kind of WAL record.
type Op string

const (
	OpIngest Op = "ingest"
	OpDelete Op = "delete"
)

// Record is one append-only WAL line.
type Record struct {
	Op    Op           `json:"op"`
	Entry *model.Entry `json:"entry,omitempty"`
	ID    string       `json:"id,omitempty"`
	TS    time.Time    `json:"ts"`
}

// Manager owns the pending.jsonl file under <workspace>/.wal.
type Manager struct {
	path       string
	flushCount int
	flushBytes int64
	pending    int
}

// New returns a Manager for workspace/.wal/pending.jsonl.
func New(workspaceDir string, flushCount int, flushBytes int64) *Manager {
	if flushCount <= 0 {
		flushCount = DefaultFlushCount
	}
	if flushBytes <= 0 {
		flushBytes = DefaultFlushBytes
	}
	return &Manager{
		path:       filepath.Join(workspaceDir, ".wal", "pending.jsonl"),
		flushCount: flushCount,
		flushBytes: flushBytes,
	}
}

// Path returns the WAL file path.
func (m *Manager) Path() string { return m.path }

// AppendIngest appends an ingest record and reports whether a flush is due.
func (m *Manager) AppendIngest(e *model.Entry) (bool, error) {
	return m.append(Record{Op: OpIngest, Entry: e, TS: time.Now().UTC()})
}

// AppendDelete appends a delete record and reports whether a flush is due.
func (m *Manager) AppendDelete(id string) (bool, error) {
	return m.append(Record{Op: OpDelete, ID: id, TS: time.Now().UTC()})
}

func (m *Manager) append(r Record) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return false, errs.Wrap(err, errs.CodeIOFailure, "create wal dir")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return false, errs.Wrap(err, errs.CodeIOFailure, "marshal wal record")
	}
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errs.Wrap(err, errs.CodeIOFailure, "open wal")
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return false, errs.Wrap(err, errs.CodeIOFailure, "append wal")
	}
	if err := f.Sync(); err != nil {
		return false, errs.Wrap(err, errs.CodeIOFailure, "sync wal")
	}
	m.pending++
	return m.dueForFlush(), nil
}

func (m *Manager) dueForFlush() bool {
	if m.pending >= m.flushCount {
		return true
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false
	}
	return info.Size() >= m.flushBytes
}

// ReadAll replays every record currently in the log, in append order.
func (m *Manager) ReadAll() ([]Record, error) {
	f, err := os.Open(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "open wal")
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errs.Wrap(err, errs.CodeStoreCorrupt, "decode wal line")
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "scan wal")
	}
	return out, nil
}

// Truncate atomically empties the log by renaming a fresh empty file over
// it, and resets the pending counter.
func (m *Manager) Truncate() error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "create wal dir")
	}
	tmp, err := os.CreateTemp(dir, "pending.jsonl.empty-*")
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "create empty wal temp")
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(err, errs.CodeIOFailure, "close empty wal temp")
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(err, errs.CodeIOFailure, "truncate wal")
	}
	m.pending = 0
	return nil
}

// Inspect reports pending record count, byte size, and a small content
// sample, without mutating the log.
type Inspection struct {
	Pending int      `json:"pending"`
	Bytes   int64    `json:"size_bytes"`
	Sample  []Record `json:"sample"`
}

// Inspect reads the WAL without consuming it.
func (m *Manager) Inspect() (Inspection, error) {
	records, err := m.ReadAll()
	if err != nil {
		return Inspection{}, err
	}
	var size int64
	if info, err := os.Stat(m.path); err == nil {
		size = info.Size()
	}
	sample := records
	if len(sample) > 5 {
		sample = sample[:5]
	}
	return Inspection{Pending: len(records), Bytes: size, Sample: sample}, nil
}
