// Package index maintains the inverted text, tag, and date indexes used
// by the search engine, with a stable sorted on-disk schema.
package index

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/foundryforge/agentmem/internal/atomicio"
	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/model"
)

// Posting is one (id, term-frequency) pair in a text-index posting list.
type Posting struct {
	ID string `json:"id"`
	TF int    `json:"tf"`
}

// textIndexWire is the on-disk shape: term -> sorted posting list.
type textIndexWire map[string][]Posting

// setIndexWire is the on-disk shape for tag/date indexes: key -> sorted ids.
type setIndexWire map[string][]string

// Manager holds the three inverted indexes in memory.
type Manager struct {
	dir  string
	text map[string]map[string]int  // term -> id -> tf
	tags map[string]map[string]bool // tag -> id set
	date map[string]map[string]bool // YYYY-MM-DD -> id set
}

// New returns an empty Manager rooted at workspace/indexes.
func New(workspaceDir string) *Manager {
	return &Manager{
		dir:  filepath.Join(workspaceDir, "indexes"),
		text: map[string]map[string]int{},
		tags: map[string]map[string]bool{},
		date: map[string]map[string]bool{},
	}
}

func (m *Manager) textPath() string { return filepath.Join(m.dir, "search_index.json") }
func (m *Manager) tagPath() string  { return filepath.Join(m.dir, "tag_index.json") }
func (m *Manager) datePath() string { return filepath.Join(m.dir, "date_index.json") }

// AddEntry indexes a single entry's content, tags, and date.
func (m *Manager) AddEntry(e *model.Entry) {
	counts := map[string]int{}
	for _, t := range Tokenize(e.Content) {
		counts[t]++
	}
	for term, tf := range counts {
		if m.text[term] == nil {
			m.text[term] = map[string]int{}
		}
		m.text[term][e.ID] = tf
	}
	for tag := range e.Tags {
		if m.tags[tag] == nil {
			m.tags[tag] = map[string]bool{}
		}
		m.tags[tag][e.ID] = true
	}
	day := e.Created.UTC().Format("2006-01-02")
	if m.date[day] == nil {
		m.date[day] = map[string]bool{}
	}
	m.date[day][e.ID] = true
}

// RemoveEntry removes a single entry from all three indexes. needs the
// same content/tags/date it was added with, since posting lists are keyed
// by term, not by id.
func (m *Manager) RemoveEntry(e *model.Entry) {
	seen := map[string]bool{}
	for _, t := range Tokenize(e.Content) {
		if seen[t] {
			continue
		}
		seen[t] = true
		if postings, ok := m.text[t]; ok {
			delete(postings, e.ID)
			if len(postings) == 0 {
				delete(m.text, t)
			}
		}
	}
	for tag := range e.Tags {
		if ids, ok := m.tags[tag]; ok {
			delete(ids, e.ID)
			if len(ids) == 0 {
				delete(m.tags, tag)
			}
		}
	}
	day := e.Created.UTC().Format("2006-01-02")
	if ids, ok := m.date[day]; ok {
		delete(ids, e.ID)
		if len(ids) == 0 {
			delete(m.date, day)
		}
	}
}

// Rebuild reconstructs all three indexes from the authoritative entry map.
// Returns (term count, tag count, date bucket count).
func (m *Manager) Rebuild(entries map[string]*model.Entry) (int, int, int) {
	m.text = map[string]map[string]int{}
	m.tags = map[string]map[string]bool{}
	m.date = map[string]map[string]bool{}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m.AddEntry(entries[id])
	}
	return len(m.text), len(m.tags), len(m.date)
}

// PostingList returns term's postings as a map from entry id to term
// frequency; the map has no defined order.
func (m *Manager) PostingList(term string) map[string]int {
	return m.text[term]
}

// DocFreq returns the number of documents containing term.
func (m *Manager) DocFreq(term string) int {
	return len(m.text[term])
}

// IDsWithTag returns the id set for tag.
func (m *Manager) IDsWithTag(tag string) map[string]bool {
	return m.tags[tag]
}

// IDsOnDate returns the id set for a YYYY-MM-DD day.
func (m *Manager) IDsOnDate(day string) map[string]bool {
	return m.date[day]
}

// Save persists all three indexes atomically as sorted JSON documents.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "create indexes dir")
	}
	textOut := make(textIndexWire, len(m.text))
	for term, postings := range m.text {
		list := make([]Posting, 0, len(postings))
		for id, tf := range postings {
			list = append(list, Posting{ID: id, TF: tf})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		textOut[term] = list
	}
	if err := atomicio.WriteJSON(m.textPath(), textOut); err != nil {
		return err
	}

	tagOut := toSortedSetWire(m.tags)
	if err := atomicio.WriteJSON(m.tagPath(), tagOut); err != nil {
		return err
	}

	dateOut := toSortedSetWire(m.date)
	if err := atomicio.WriteJSON(m.datePath(), dateOut); err != nil {
		return err
	}
	return nil
}

func toSortedSetWire(m map[string]map[string]bool) setIndexWire {
	out := make(setIndexWire, len(m))
	for key, ids := range m {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		out[key] = list
	}
	return out
}

// Load reads all three index files from disk, if present.
func (m *Manager) Load() error {
	if atomicio.Exists(m.textPath()) {
		var wire textIndexWire
		if err := atomicio.ReadJSON(m.textPath(), &wire); err != nil {
			return err
		}
		m.text = map[string]map[string]int{}
		for term, list := range wire {
			postings := make(map[string]int, len(list))
			for _, p := range list {
				postings[p.ID] = p.TF
			}
			m.text[term] = postings
		}
	}
	if atomicio.Exists(m.tagPath()) {
		var wire setIndexWire
		if err := atomicio.ReadJSON(m.tagPath(), &wire); err != nil {
			return err
		}
		m.tags = fromSortedSetWire(wire)
	}
	if atomicio.Exists(m.datePath()) {
		var wire setIndexWire
		if err := atomicio.ReadJSON(m.datePath(), &wire); err != nil {
			return err
		}
		m.date = fromSortedSetWire(wire)
	}
	return nil
}

func fromSortedSetWire(wire setIndexWire) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(wire))
	for key, list := range wire {
		ids := make(map[string]bool, len(list))
		for _, id := range list {
			ids[id] = true
		}
		out[key] = ids
	}
	return out
}

// VocabSize returns the number of distinct terms in the text index.
func (m *Manager) VocabSize() int { return len(m.text) }
