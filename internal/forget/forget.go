// Package forget implements selective deletion (forget/purge) with an
// append-only audit trail.
package forget

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/model"
)

// ForgetCriteria selects entries for forget(); criteria are OR'd together.
type ForgetCriteria struct {
	Entity     string
	Topic      string
	BeforeDate time.Time
	ID         string
}

// PurgeCriteria selects entries for purge(); criteria are OR'd together.
type PurgeCriteria struct {
	Source          string
	ContentContains string
	Predicate       func(*model.Entry) bool
}

// Result reports what a forget/purge call removed.
type Result struct {
	Removed    int `json:"removed"`
	WALRemoved int `json:"wal_removed"`
	Total      int `json:"total"`
}

// AuditRecord is one append-only line in memory_audit.jsonl. RecordID is
// a ulid, not a content hash: it identifies the audit line itself, not
// any memory entry.
type AuditRecord struct {
	RecordID  string    `json:"record_id"`
	Op        string    `json:"op"`
	IDs       []string  `json:"ids"`
	Criteria  string    `json:"criteria"`
	Timestamp time.Time `json:"ts"`
}

// NewAuditRecord builds an AuditRecord with a fresh record id.
func NewAuditRecord(op string, ids []string, criteria string, ts time.Time) AuditRecord {
	return AuditRecord{
		RecordID:  ulid.MustNew(ulid.Timestamp(ts), rand.Reader).String(),
		Op:        op,
		IDs:       ids,
		Criteria:  criteria,
		Timestamp: ts,
	}
}

// Auditor appends destructive-operation records to memory_audit.jsonl.
type Auditor struct {
	path string
}

// NewAuditor returns an Auditor for workspace/memory_audit.jsonl.
func NewAuditor(workspaceDir string) *Auditor {
	return &Auditor{path: filepath.Join(workspaceDir, "memory_audit.jsonl")}
}

// Append writes one audit record.
func (a *Auditor) Append(rec AuditRecord) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "create audit dir")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "marshal audit record")
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "open audit log")
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "append audit log")
	}
	return f.Sync()
}

// MatchForget returns ids of entries matching any of criteria's set
// fields, applied as OR.
func MatchForget(entries map[string]*model.Entry, c ForgetCriteria) []string {
	var matched []string
	for id, e := range entries {
		if c.ID != "" && id == c.ID {
			matched = append(matched, id)
			continue
		}
		if c.Entity != "" && (strings.Contains(strings.ToLower(e.Content), strings.ToLower(c.Entity)) || e.HasTag(c.Entity)) {
			matched = append(matched, id)
			continue
		}
		if c.Topic != "" && (e.Category == c.Topic || e.HasTag(c.Topic) || strings.Contains(strings.ToLower(e.Content), strings.ToLower(c.Topic))) {
			matched = append(matched, id)
			continue
		}
		if !c.BeforeDate.IsZero() && e.Created.Before(c.BeforeDate) {
			matched = append(matched, id)
			continue
		}
	}
	sort.Strings(matched)
	return matched
}

// MatchPurge returns ids of entries matching any of criteria's set fields.
func MatchPurge(entries map[string]*model.Entry, c PurgeCriteria) []string {
	var matched []string
	for id, e := range entries {
		if c.Source != "" && e.Source == c.Source {
			matched = append(matched, id)
			continue
		}
		if c.ContentContains != "" && strings.Contains(strings.ToLower(e.Content), strings.ToLower(c.ContentContains)) {
			matched = append(matched, id)
			continue
		}
		if c.Predicate != nil && c.Predicate(e) {
			matched = append(matched, id)
			continue
		}
	}
	sort.Strings(matched)
	return matched
}

// DescribeForget renders criteria for the audit record's criteria field.
func DescribeForget(c ForgetCriteria) string {
	var parts []string
	if c.ID != "" {
		parts = append(parts, "id="+c.ID)
	}
	if c.Entity != "" {
		parts = append(parts, "entity="+c.Entity)
	}
	if c.Topic != "" {
		parts = append(parts, "topic="+c.Topic)
	}
	if !c.BeforeDate.IsZero() {
		parts = append(parts, "before="+c.BeforeDate.Format(time.RFC3339))
	}
	return strings.Join(parts, ",")
}

// DescribePurge renders criteria for the audit record's criteria field.
func DescribePurge(c PurgeCriteria) string {
	var parts []string
	if c.Source != "" {
		parts = append(parts, "source="+c.Source)
	}
	if c.ContentContains != "" {
		parts = append(parts, "content_contains="+c.ContentContains)
	}
	if c.Predicate != nil {
		parts = append(parts, "predicate=<fn>")
	}
	return strings.Join(parts, ",")
}
