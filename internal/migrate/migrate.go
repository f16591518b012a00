// Package migrate detects and converts the legacy single-file memory
// layout into the sharded workspace layout, with backup and rollback.
package migrate

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/foundryforge/agentmem/internal/atomicio"
	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/model"
	"github.com/foundryforge/agentmem/internal/version"
)

// LegacyFileName is the single-file layout this package migrates from.
const LegacyFileName = "memory_metadata.json"

// legacyDocument is the shape of the old single-file store: a flat list
// of entries keyed by id.
type legacyDocument struct {
	Memories map[string]*model.Entry `json:"memories"`
}

// Record is one append-only entry in migrations/history.json. RecordID
// is a ulid identifying the history line itself, not a memory entry.
type Record struct {
	RecordID   string    `json:"record_id"`
	Timestamp  time.Time `json:"ts"`
	BackupPath string    `json:"backup_path"`
	EntryCount int       `json:"entry_count"`
	Status     string    `json:"status"`
}

func newRecordID(ts time.Time) string {
	return ulid.MustNew(ulid.Timestamp(ts), rand.Reader).String()
}

// Manager drives detection, backup, migration, and rollback.
type Manager struct {
	workspaceDir string
}

// New returns a Manager rooted at workspaceDir.
func New(workspaceDir string) *Manager {
	return &Manager{workspaceDir: workspaceDir}
}

func (m *Manager) legacyPath() string {
	return filepath.Join(m.workspaceDir, LegacyFileName)
}

func (m *Manager) historyPath() string {
	return filepath.Join(m.workspaceDir, "migrations", "history.json")
}

// NeedsMigration reports whether a legacy metadata file is present.
func (m *Manager) NeedsMigration() bool {
	return atomicio.Exists(m.legacyPath())
}

// Migrate backs up the legacy file, decodes its entries, appends a history
// record, and returns the decoded entries for the caller to shard and
// index. On any failure the workspace is left unchanged except for the
// preserved backup.
func (m *Manager) Migrate(now time.Time) ([]*model.Entry, error) {
	legacyPath := m.legacyPath()
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeMigrationFailed, "read legacy store")
	}

	backupDir := filepath.Join(m.workspaceDir, "migrations")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodeMigrationFailed, "create migrations dir")
	}
	backupPath := filepath.Join(backupDir, "backup-"+now.UTC().Format("20060102T150405")+".json")
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return nil, errs.Wrap(err, errs.CodeMigrationFailed, "write backup")
	}

	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(err, errs.CodeMigrationFailed, "decode legacy store")
	}

	entries := make([]*model.Entry, 0, len(doc.Memories))
	for _, e := range doc.Memories {
		entries = append(entries, e)
	}

	if err := m.appendHistory(Record{
		RecordID:   newRecordID(now),
		Timestamp:  now,
		BackupPath: backupPath,
		EntryCount: len(entries),
		Status:     "migrated",
	}); err != nil {
		return nil, err
	}

	return entries, nil
}

// FinalizeRemoveLegacy deletes the legacy file once the caller has
// successfully sharded and indexed the migrated entries.
func (m *Manager) FinalizeRemoveLegacy() error {
	if err := os.Remove(m.legacyPath()); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(err, errs.CodeMigrationFailed, "remove legacy store")
	}
	return nil
}

// Rollback restores the backup at backupPath over the legacy file path and
// removes the shard/index artifacts produced by a failed migration.
func (m *Manager) Rollback(backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return errs.Wrap(err, errs.CodeMigrationFailed, "read backup")
	}
	if err := os.WriteFile(m.legacyPath(), data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeMigrationFailed, "restore legacy store")
	}
	os.RemoveAll(filepath.Join(m.workspaceDir, "shards"))
	os.RemoveAll(filepath.Join(m.workspaceDir, "indexes"))
	now := time.Now().UTC()
	return m.appendHistory(Record{
		RecordID:   newRecordID(now),
		Timestamp:  now,
		BackupPath: backupPath,
		Status:     "rolled_back",
	})
}

// appendHistory appends rec to migrations/history.json under a
// VersionTracker-guarded read-modify-write: a rollback running in another
// process could be appending its own record to the same file between our
// read and write, and SafeUpdate's snapshot-check-retry loop catches that
// instead of silently clobbering it.
func (m *Manager) appendHistory(rec Record) error {
	path := m.historyPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, errs.CodeMigrationFailed, "create migrations dir")
	}
	if !atomicio.Exists(path) {
		if err := atomicio.WriteJSON(path, []Record{}); err != nil {
			return err
		}
	}

	var history []Record
	modifier := func(h *[]Record) error {
		*h = append(*h, rec)
		return nil
	}
	if err := version.SafeUpdate(path, &history, modifier, version.MaxRetries); err != nil {
		return errs.Wrap(err, errs.CodeMigrationFailed, "append migration history")
	}
	return nil
}
