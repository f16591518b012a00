package migrate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foundryforge/agentmem/internal/model"
)

func writeLegacyFile(t *testing.T, dir string, entries ...*model.Entry) {
	t.Helper()
	doc := struct {
		Memories map[string]*model.Entry `json:"memories"`
	}{Memories: map[string]*model.Entry{}}
	for _, e := range entries {
		doc.Memories[e.ID] = e
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal legacy doc: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, LegacyFileName), data, 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}
}

func TestNeedsMigrationDetectsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)
	if m.NeedsMigration() {
		t.Fatal("expected no migration needed before legacy file exists")
	}

	writeLegacyFile(t, dir, model.New("content", "test", "general", "fact", time.Now()))
	if !m.NeedsMigration() {
		t.Fatal("expected migration needed once legacy file exists")
	}
}

func TestMigrateBacksUpAndDecodesEntries(t *testing.T) {
	dir := t.TempDir()
	e1 := model.New("first memory", "test", "general", "fact", time.Now())
	e2 := model.New("second memory", "test", "general", "fact", time.Now())
	writeLegacyFile(t, dir, e1, e2)

	m := New(dir)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries, err := m.Migrate(now)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 decoded entries, got %d", len(entries))
	}

	backupPath := filepath.Join(dir, "migrations", "backup-20260101T120000.json")
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("expected backup file at %s: %v", backupPath, err)
	}

	historyPath := filepath.Join(dir, "migrations", "history.json")
	var history []Record
	data, err := os.ReadFile(historyPath)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}
	if history[0].EntryCount != 2 || history[0].Status != "migrated" {
		t.Errorf("unexpected history record: %+v", history[0])
	}
	if history[0].RecordID == "" {
		t.Error("expected a non-empty record id")
	}
}

func TestMigrateOnMissingLegacyFileErrors(t *testing.T) {
	m := New(t.TempDir())
	if _, err := m.Migrate(time.Now()); err == nil {
		t.Fatal("expected an error when no legacy file exists")
	}
}

func TestFinalizeRemoveLegacyDeletesFile(t *testing.T) {
	dir := t.TempDir()
	writeLegacyFile(t, dir, model.New("content", "test", "general", "fact", time.Now()))
	m := New(dir)

	if err := m.FinalizeRemoveLegacy(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LegacyFileName)); !os.IsNotExist(err) {
		t.Error("expected legacy file to be removed")
	}
}

func TestFinalizeRemoveLegacyIsIdempotent(t *testing.T) {
	m := New(t.TempDir())
	if err := m.FinalizeRemoveLegacy(); err != nil {
		t.Fatalf("expected no error removing an already-absent legacy file, got: %v", err)
	}
}

func TestMigrateThenRollbackRestoresLegacyFile(t *testing.T) {
	dir := t.TempDir()
	e1 := model.New("first memory", "test", "general", "fact", time.Now())
	writeLegacyFile(t, dir, e1)

	m := New(dir)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if _, err := m.Migrate(now); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := m.FinalizeRemoveLegacy(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "shards"), 0o755); err != nil {
		t.Fatalf("mkdir shards: %v", err)
	}

	backupPath := filepath.Join(dir, "migrations", "backup-20260101T120000.json")
	if err := m.Rollback(backupPath); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, LegacyFileName)); err != nil {
		t.Fatalf("expected legacy file restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "shards")); !os.IsNotExist(err) {
		t.Error("expected shards dir removed by rollback")
	}

	historyPath := filepath.Join(dir, "migrations", "history.json")
	data, err := os.ReadFile(historyPath)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var history []Record
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history records (migrate + rollback), got %d", len(history))
	}
	if history[1].Status != "rolled_back" {
		t.Errorf("expected second record status 'rolled_back', got %q", history[1].Status)
	}
}
