// Package model defines the core memory data types.
package model

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

// MinContentLen is the default minimum content length accepted at ingest.
const MinContentLen = 15

// Entry is a single stored memory. Content and identity fields are
// immutable after creation; access stats and importance mutate over
// the entry's lifetime.
type Entry struct {
	ID          string              `json:"hash"`
	Content     string              `json:"content"`
	Source      string              `json:"source"`
	Category    string              `json:"category"`
	MemoryType  string              `json:"memory_type"`
	Created     time.Time           `json:"created"`
	Importance  float64             `json:"importance"`
	Confidence  float64             `json:"confidence"`
	Tags        map[string]struct{} `json:"-"`
	Sentiment   map[string]float64  `json:"sentiment,omitempty"`
	AccessCount int                 `json:"access_count"`
	LastAccess  *time.Time          `json:"last_accessed"`
}

// entryWire is the on-disk JSON shape (tags as a sorted array).
type entryWire struct {
	ID          string             `json:"hash"`
	Content     string             `json:"content"`
	Source      string             `json:"source"`
	Category    string             `json:"category"`
	MemoryType  string             `json:"memory_type"`
	Created     time.Time          `json:"created"`
	Importance  float64            `json:"importance"`
	Confidence  float64            `json:"confidence"`
	Tags        []string           `json:"tags"`
	Sentiment   map[string]float64 `json:"sentiment,omitempty"`
	AccessCount int                `json:"access_count"`
	LastAccess  *time.Time         `json:"last_accessed"`
}

// MarshalJSON writes tags as a sorted array for deterministic output.
func (e *Entry) MarshalJSON() ([]byte, error) {
	tags := make([]string, 0, len(e.Tags))
	for t := range e.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return json.Marshal(entryWire{
		ID:          e.ID,
		Content:     e.Content,
		Source:      e.Source,
		Category:    e.Category,
		MemoryType:  e.MemoryType,
		Created:     e.Created,
		Importance:  e.Importance,
		Confidence:  e.Confidence,
		Tags:        tags,
		Sentiment:   e.Sentiment,
		AccessCount: e.AccessCount,
		LastAccess:  e.LastAccess,
	})
}

// UnmarshalJSON rejects unknown keys per the closed-field-set design note.
func (e *Entry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w entryWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Content = w.Content
	e.Source = w.Source
	e.Category = w.Category
	e.MemoryType = w.MemoryType
	e.Created = w.Created
	e.Importance = w.Importance
	e.Confidence = w.Confidence
	e.Sentiment = w.Sentiment
	e.AccessCount = w.AccessCount
	e.LastAccess = w.LastAccess
	e.Tags = make(map[string]struct{}, len(w.Tags))
	for _, t := range w.Tags {
		e.Tags[t] = struct{}{}
	}
	return nil
}

// TagList returns the entry's tags as a sorted slice.
func (e *Entry) TagList() []string {
	out := make([]string, 0, len(e.Tags))
	for t := range e.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the entry carries tag.
func (e *Entry) HasTag(tag string) bool {
	_, ok := e.Tags[tag]
	return ok
}

// ComputeID returns the 128-bit content hash identity for (content, source).
// created is deliberately excluded: re-ingesting identical (content,
// source) at a later wall-clock time must resolve to the same id so the
// ingest path can reinforce the existing entry instead of duplicating it.
func ComputeID(content, source string) string {
	h, _ := blake2b.New(16, nil) // 128-bit digest
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// New builds a normalized Entry, computing its content-hash id.
func New(content, source, category, memoryType string, created time.Time) *Entry {
	if category == "" {
		category = "general"
	}
	if memoryType == "" {
		memoryType = "episodic"
	}
	return &Entry{
		ID:         ComputeID(content, source),
		Content:    content,
		Source:     source,
		Category:   category,
		MemoryType: memoryType,
		Created:    created,
		Importance: 1.0,
		Confidence: 0.8,
		Tags:       map[string]struct{}{},
		Sentiment:  map[string]float64{},
	}
}
