package index

import (
	"testing"
	"time"

	"github.com/foundryforge/agentmem/internal/model"
)

func newTagged(t *testing.T, content string, tags []string, created time.Time) *model.Entry {
	t.Helper()
	e := model.New(content, "test", "general", "episodic", created)
	for _, tag := range tags {
		e.Tags[tag] = struct{}{}
	}
	return e
}

func TestAddEntryAndPostingList(t *testing.T) {
	m := New(t.TempDir())
	e := newTagged(t, "go programming language", []string{"go"}, time.Now())
	m.AddEntry(e)

	postings := m.PostingList("programming")
	if postings == nil || postings[e.ID] != 1 {
		t.Fatalf("expected posting for 'programming' with tf=1, got %v", postings)
	}
	if m.DocFreq("programming") != 1 {
		t.Errorf("expected doc freq 1, got %d", m.DocFreq("programming"))
	}
	ids := m.IDsWithTag("go")
	if !ids[e.ID] {
		t.Errorf("expected entry tagged under 'go'")
	}
}

func TestRemoveEntryClearsAllIndexes(t *testing.T) {
	m := New(t.TempDir())
	created := time.Now()
	e := newTagged(t, "go programming language", []string{"go"}, created)
	m.AddEntry(e)
	m.RemoveEntry(e)

	if m.PostingList("programming") != nil {
		t.Error("expected posting list removed")
	}
	if m.IDsWithTag("go") != nil {
		t.Error("expected tag index entry removed")
	}
	day := created.UTC().Format("2006-01-02")
	if m.IDsOnDate(day) != nil {
		t.Error("expected date index entry removed")
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := map[string]*model.Entry{}
	for i, content := range []string{"alpha beta", "beta gamma", "gamma delta"} {
		e := newTagged(t, content, nil, created.Add(time.Duration(i)*time.Hour))
		entries[e.ID] = e
	}

	m1 := New(t.TempDir())
	terms1, tags1, dates1 := m1.Rebuild(entries)

	m2 := New(t.TempDir())
	terms2, tags2, dates2 := m2.Rebuild(entries)

	if terms1 != terms2 || tags1 != tags2 || dates1 != dates2 {
		t.Fatalf("expected identical rebuild counts, got (%d,%d,%d) vs (%d,%d,%d)",
			terms1, tags1, dates1, terms2, tags2, dates2)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)
	e := newTagged(t, "go programming language", []string{"go", "lang"}, time.Now())
	m.AddEntry(e)

	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh := New(dir)
	if err := fresh.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.DocFreq("programming") != 1 {
		t.Errorf("expected doc freq 1 after reload, got %d", fresh.DocFreq("programming"))
	}
	if fresh.VocabSize() != m.VocabSize() {
		t.Errorf("expected matching vocab size, got %d vs %d", fresh.VocabSize(), m.VocabSize())
	}
}

func TestSaveCreatesIndexesDir(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)
	if err := m.Save(); err != nil {
		t.Fatalf("expected Save to create its own directory, got: %v", err)
	}
}
