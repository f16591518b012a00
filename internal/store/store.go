// Package store provides the MemorySystem facade that orchestrates
// shards, the WAL, indexes, decay scoring, access tracking, the read
// cache, gating, consolidation, forgetting, and migration into the
// lifecycle operations exposed to callers.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/foundryforge/agentmem/internal/access"
	"github.com/foundryforge/agentmem/internal/cache"
	"github.com/foundryforge/agentmem/internal/config"
	"github.com/foundryforge/agentmem/internal/consolidate"
	"github.com/foundryforge/agentmem/internal/decay"
	"github.com/foundryforge/agentmem/internal/embedding"
	"github.com/foundryforge/agentmem/internal/errs"
	"github.com/foundryforge/agentmem/internal/filelock"
	"github.com/foundryforge/agentmem/internal/forget"
	"github.com/foundryforge/agentmem/internal/gate"
	"github.com/foundryforge/agentmem/internal/index"
	"github.com/foundryforge/agentmem/internal/migrate"
	"github.com/foundryforge/agentmem/internal/model"
	"github.com/foundryforge/agentmem/internal/search"
	"github.com/foundryforge/agentmem/internal/shard"
	"github.com/foundryforge/agentmem/internal/wal"
)

// IngestStatus is the non-error outcome of an ingest call.
type IngestStatus string

const (
	StatusStored    IngestStatus = "stored"
	StatusDuplicate IngestStatus = "duplicate"
	StatusDropped   IngestStatus = "dropped"
)

// OutcomeLabel is the feedback signal passed to RecordOutcome.
type OutcomeLabel string

const (
	OutcomeGood    OutcomeLabel = "good"
	OutcomeNeutral OutcomeLabel = "neutral"
	OutcomeBad     OutcomeLabel = "bad"
)

var outcomeMultiplier = map[OutcomeLabel]float64{
	OutcomeGood:    1.2,
	OutcomeNeutral: 1.0,
	OutcomeBad:     0.8,
}

const (
	minImportance = 0.01
	maxImportance = 100.0
)

// System is a single workspace's memory store: the authoritative
// id->entry map plus every supporting subsystem. Its public methods take
// an internal mutex, so calls on one instance are serialized within the
// process; cross-process mutation is guarded by file locks.
type System struct {
	cfg *config.Config

	mu      sync.Mutex
	entries map[string]*model.Entry

	shards   *shard.Manager
	wal      *wal.Manager
	idx      *index.Manager
	decayer  *decay.Engine
	access   *access.Tracker
	cache    *cache.LRU
	engine   *search.Engine
	auditor  *forget.Auditor
	migrator *migrate.Manager
	lock     *filelock.Lock

	embedder embedding.Embedder
	embeds   map[string]embedding.Vector

	bulkMode bool
}

// Open constructs a System for cfg.Workspace but does not load state; call
// Load to populate it from disk.
func Open(cfg *config.Config, embedder embedding.Embedder) (*System, error) {
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "create workspace")
	}
	dec := decay.New(cfg.HalfLifeDays)
	idx := index.New(cfg.Workspace)
	s := &System{
		cfg:      cfg,
		entries:  map[string]*model.Entry{},
		shards:   shard.New(cfg.Workspace, cfg.MaxShardBytes),
		wal:      wal.New(cfg.Workspace, cfg.WALFlushCount, cfg.WALFlushBytes),
		idx:      idx,
		decayer:  dec,
		access:   access.New(cfg.Workspace),
		cache:    cache.New(cfg.CacheMaxEntries),
		auditor:  forget.NewAuditor(cfg.Workspace),
		migrator: migrate.New(cfg.Workspace),
		lock:     filelock.New(filepath.Join(cfg.Workspace, ".lock")).WithStaleAfter(secondsToDuration(cfg.StaleLockAgeS)),
		embedder: embedder,
		embeds:   map[string]embedding.Vector{},
	}
	s.engine = search.New(idx, dec, embedder)
	return s, nil
}

func secondsToDuration(s int) time.Duration {
	if s <= 0 {
		s = 300
	}
	return time.Duration(s) * time.Second
}

// Load reads shards, indexes, and access stats from disk, migrating a
// legacy single-file store first if present, then replays and flushes any
// pending WAL.
func (s *System) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrator.NeedsMigration() {
		if err := s.runMigrationLocked(); err != nil {
			return err
		}
	}

	shardMap, err := s.shards.LoadAll()
	if err != nil {
		return err
	}
	s.entries = map[string]*model.Entry{}
	for _, list := range shardMap {
		for _, e := range list {
			s.entries[e.ID] = e
		}
	}

	if err := s.idx.Load(); err != nil {
		return err
	}
	if err := s.access.Load(); err != nil {
		return err
	}

	records, err := s.wal.ReadAll()
	if err != nil {
		return err
	}
	if len(records) > 0 {
		if err := s.replayLocked(records); err != nil {
			return err
		}
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) runMigrationLocked() error {
	entries, err := s.migrator.Migrate(time.Now().UTC())
	if err != nil {
		return err
	}
	for _, e := range entries {
		k := shard.KeyOf(e)
		list, err := s.shards.EnsureLoaded(k)
		if err != nil {
			return err
		}
		list = append(list, e)
		s.shards.MarkDirty(k, list)
	}
	if _, err := s.shards.FlushDirty(); err != nil {
		return err
	}
	rebuildEntries := map[string]*model.Entry{}
	for _, e := range entries {
		rebuildEntries[e.ID] = e
	}
	s.idx.Rebuild(rebuildEntries)
	if err := s.idx.Save(); err != nil {
		return err
	}
	return s.migrator.FinalizeRemoveLegacy()
}

// replayLocked applies pending WAL records to the in-memory map, the
// indexes, and the shard lists, so the flush that follows persists the
// replayed state before the WAL is truncated.
func (s *System) replayLocked(records []wal.Record) error {
	for _, r := range records {
		switch r.Op {
		case wal.OpIngest:
			if r.Entry == nil {
				continue
			}
			if _, exists := s.entries[r.Entry.ID]; !exists {
				s.entries[r.Entry.ID] = r.Entry
				s.idx.AddEntry(r.Entry)
				k := shard.KeyOf(r.Entry)
				list, err := s.shards.EnsureLoaded(k)
				if err != nil {
					return err
				}
				s.shards.MarkDirty(k, append(list, r.Entry))
			}
		case wal.OpDelete:
			if e, ok := s.entries[r.ID]; ok {
				s.idx.RemoveEntry(e)
				delete(s.entries, r.ID)
				k := shard.KeyOf(e)
				list, err := s.shards.EnsureLoaded(k)
				if err != nil {
					return err
				}
				s.shards.MarkDirty(k, removeByID(list, r.ID))
			}
		}
	}
	return nil
}

// Save persists every dirty shard and index, flushes access stats, and
// truncates the WAL, without requiring a pending-threshold flush.
func (s *System) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *System) flushLocked() error {
	if err := s.lock.Acquire(30 * time.Second); err != nil {
		return err
	}
	defer s.lock.Release()

	if _, err := s.shards.FlushDirty(); err != nil {
		return err
	}
	if err := s.idx.Save(); err != nil {
		return err
	}
	if err := s.access.Flush(); err != nil {
		return err
	}
	return s.wal.Truncate()
}

// Ingest stores content if novel, reinforces it if a duplicate, or drops
// it if too short. It does not run the input gate.
func (s *System) Ingest(content, source, category, memoryType string, tags []string) (IngestStatus, *model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestLocked(content, source, category, memoryType, tags, time.Now().UTC())
}

// normalizeContent trims surrounding whitespace and applies Unicode NFC
// normalization, so that visually identical content hashes to the same id
// and is stored in one canonical form regardless of input encoding.
func normalizeContent(content string) string {
	return norm.NFC.String(strings.TrimSpace(content))
}

func (s *System) ingestLocked(content, source, category, memoryType string, tags []string, now time.Time) (IngestStatus, *model.Entry, error) {
	content = normalizeContent(content)
	if len([]rune(content)) < s.cfg.MinContentLen {
		return StatusDropped, nil, nil
	}

	id := model.ComputeID(content, source)
	if existing, ok := s.entries[id]; ok {
		existing.AccessCount++
		t := now
		existing.LastAccess = &t
		k := shard.KeyOf(existing)
		list, err := s.shards.EnsureLoaded(k)
		if err != nil {
			return "", nil, err
		}
		s.shards.MarkDirty(k, list)
		s.cache.Clear()
		return StatusDuplicate, existing, nil
	}

	e := model.New(content, source, category, memoryType, now)
	for _, t := range tags {
		e.Tags[t] = struct{}{}
	}

	if err := s.lock.Acquire(30 * time.Second); err != nil {
		return "", nil, err
	}
	flushDue, err := s.wal.AppendIngest(e)
	s.lock.Release()
	if err != nil {
		return "", nil, err
	}

	s.entries[e.ID] = e
	if !s.bulkMode {
		s.idx.AddEntry(e)
	}
	k := shard.KeyOf(e)
	list, err := s.shards.EnsureLoaded(k)
	if err != nil {
		return "", nil, err
	}
	list = append(list, e)
	s.shards.MarkDirty(k, list)
	s.cache.Clear()

	if s.embedder != nil {
		if vec, err := s.embedder.Embed(context.Background(), content); err == nil {
			s.embeds[e.ID] = vec
		}
	}

	if flushDue && !s.bulkMode {
		if err := s.flushLocked(); err != nil {
			return "", nil, err
		}
	}
	return StatusStored, e, nil
}

// IngestWithGating classifies content through the input gate first; P3
// content is dropped without touching the store.
func (s *System) IngestWithGating(content, source, category, memoryType string, tags []string) (IngestStatus, *model.Entry, error) {
	ctx := &gate.Context{Source: source, Category: category}
	priority := gate.Classify(content, ctx)
	if priority == gate.P3 {
		return StatusDropped, nil, nil
	}
	if category == "" {
		category = gate.CategoryFor(priority)
	}
	return s.Ingest(content, source, category, memoryType, tags)
}

// IngestFact, IngestPreference, and IngestProcedure are typed ingest
// variants that preset memory_type.
func (s *System) IngestFact(content, source, category string, tags []string) (IngestStatus, *model.Entry, error) {
	return s.Ingest(content, source, category, "fact", tags)
}

func (s *System) IngestPreference(content, source, category string, tags []string) (IngestStatus, *model.Entry, error) {
	return s.Ingest(content, source, category, "preference", tags)
}

func (s *System) IngestProcedure(content, source, category string, tags []string) (IngestStatus, *model.Entry, error) {
	return s.Ingest(content, source, category, "procedure", tags)
}

// IngestMistake formats a structured mistake record and stores it with
// memory_type=mistake.
func (s *System) IngestMistake(whatHappened, correction, rootCause, severity, source, category string, tags []string) (IngestStatus, *model.Entry, error) {
	content := model.FormatMistakeContent(whatHappened, correction, rootCause, severity)
	return s.Ingest(content, source, category, "mistake", tags)
}

// Search runs q against the current entry set, using the read cache when
// possible, and reinforces the access stats of every returned entry.
func (s *System) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := fingerprint(q)
	if ids, ok := s.cache.Get(fp); ok {
		return s.rehydrate(ids), nil
	}

	now := time.Now().UTC()
	results, err := s.engine.Search(ctx, s.entries, q, now, s.embeds)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Entry.ID
	}
	s.cache.Put(fp, ids)

	for _, id := range ids {
		s.access.Record(id, now)
		if e, ok := s.entries[id]; ok {
			e.AccessCount++
			t := now
			e.LastAccess = &t
		}
	}
	if err := s.access.Flush(); err != nil {
		return nil, err
	}
	return results, nil
}

// rehydrate rebuilds Result objects for a cached id list from the current
// authoritative map, so reinforcement and feedback are always reflected.
func (s *System) rehydrate(ids []string) []search.Result {
	out := make([]search.Result, 0, len(ids))
	now := time.Now().UTC()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			continue
		}
		out = append(out, search.Result{Entry: e, Relevance: 0})
		s.access.Record(id, now)
		e.AccessCount++
		t := now
		e.LastAccess = &t
	}
	// Cached relevance ordering is preserved. The cache stores no scores, so
	// each result gets a synthetic relevance of 1.0 - i*1e-9 by position.
	for i := range out {
		out[i].Relevance = 1.0 - float64(i)*1e-9
	}
	s.access.Flush()
	return out
}

func fingerprint(q search.Query) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%f|%d|%v", q.Text, q.Category, q.MemoryType, q.MinConfidence, q.Limit, q.Explain)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordOutcome applies label's importance multiplier to each id and
// appends a record to outcomes.jsonl.
func (s *System) RecordOutcome(ids []string, label OutcomeLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mult, ok := outcomeMultiplier[label]
	if !ok {
		return errs.Errorf(errs.CodeInvalidInput, "unknown outcome label %q", label)
	}
	now := time.Now().UTC()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			continue
		}
		e.Importance = clamp(e.Importance*mult, minImportance, maxImportance)
		k := shard.KeyOf(e)
		list, err := s.shards.EnsureLoaded(k)
		if err != nil {
			return err
		}
		s.shards.MarkDirty(k, list)
	}
	s.cache.Clear()
	return s.appendOutcomeRecord(outcomeRecord{IDs: ids, Label: label, Timestamp: now})
}

type outcomeRecord struct {
	IDs       []string     `json:"ids"`
	Label     OutcomeLabel `json:"label"`
	Timestamp time.Time    `json:"ts"`
}

func (s *System) outcomesPath() string {
	return filepath.Join(s.cfg.Workspace, "outcomes.jsonl")
}

func (s *System) appendOutcomeRecord(rec outcomeRecord) error {
	f, err := os.OpenFile(s.outcomesPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "open outcomes log")
	}
	defer f.Close()
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "marshal outcome record")
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "append outcomes log")
	}
	return f.Sync()
}

// FeedbackStats tallies recorded outcomes by label.
func (s *System) FeedbackStats() (map[OutcomeLabel]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[OutcomeLabel]int{OutcomeGood: 0, OutcomeNeutral: 0, OutcomeBad: 0}
	data, err := os.ReadFile(s.outcomesPath())
	if os.IsNotExist(err) {
		return counts, nil
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "read outcomes log")
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec outcomeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		counts[rec.Label]++
	}
	return counts, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Purge removes entries matching c (OR across criteria) from the map, WAL,
// and indexes, and appends one audit record.
func (s *System) Purge(c forget.PurgeCriteria) (forget.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := forget.MatchPurge(s.entries, c)
	return s.removeLocked(ids, "purge", forget.DescribePurge(c))
}

// Forget removes entries matching c (OR across criteria) from the map,
// WAL, and indexes, and appends one audit record.
func (s *System) Forget(c forget.ForgetCriteria) (forget.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := forget.MatchForget(s.entries, c)
	return s.removeLocked(ids, "forget", forget.DescribeForget(c))
}

func (s *System) removeLocked(ids []string, op, criteria string) (forget.Result, error) {
	if len(ids) == 0 {
		return forget.Result{}, s.auditor.Append(forget.NewAuditRecord(op, nil, criteria, time.Now().UTC()))
	}
	walRemoved := 0
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			continue
		}
		s.idx.RemoveEntry(e)
		delete(s.entries, id)
		delete(s.embeds, id)
		s.access.Forget(id)

		k := shard.KeyOf(e)
		list, err := s.shards.EnsureLoaded(k)
		if err != nil {
			return forget.Result{}, err
		}
		list = removeByID(list, id)
		s.shards.MarkDirty(k, list)
	}

	if err := s.lock.Acquire(30 * time.Second); err != nil {
		return forget.Result{}, err
	}
	walRemoved, err := s.removeFromWAL(ids)
	s.lock.Release()
	if err != nil {
		return forget.Result{}, err
	}

	s.cache.Clear()
	result := forget.Result{Removed: len(ids), WALRemoved: walRemoved, Total: len(s.entries)}
	if err := s.auditor.Append(forget.NewAuditRecord(op, ids, criteria, time.Now().UTC())); err != nil {
		return result, err
	}
	return result, nil
}

func removeByID(list []*model.Entry, id string) []*model.Entry {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func (s *System) removeFromWAL(ids []string) (int, error) {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	records, err := s.wal.ReadAll()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range records {
		if (r.Op == wal.OpIngest && r.Entry != nil && removeSet[r.Entry.ID]) || (r.Op == wal.OpDelete && removeSet[r.ID]) {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.wal.Truncate(); err != nil {
		return 0, err
	}
	for _, r := range records {
		skip := (r.Op == wal.OpIngest && r.Entry != nil && removeSet[r.Entry.ID]) || (r.Op == wal.OpDelete && removeSet[r.ID])
		if skip {
			continue
		}
		if r.Op == wal.OpIngest {
			if _, err := s.wal.AppendIngest(r.Entry); err != nil {
				return removed, err
			}
		} else {
			if _, err := s.wal.AppendDelete(r.ID); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

type CompactReport struct {
	Candidates  []string `json:"candidates"`
	Archived    []string `json:"archived,omitempty"`
	SplitShards []string `json:"split_shards,omitempty"`
}

// Compact proposes archive candidates via the decay engine and, when apply
// is set, removes them and then splits any shard file that has grown past
// max_shard_bytes by id hash-prefix. The split pass always runs on apply,
// even when there were no archive candidates, since shard growth and decay
// are independent. When auto_merge_near_duplicates is set, an applying
// Compact first applies the consolidation engine's near-duplicate merges.
func (s *System) Compact(threshold float64, apply bool) (CompactReport, error) {
	if apply && s.cfg.AutoMergeNearDuplicates {
		if _, err := s.Consolidate(true); err != nil {
			return CompactReport{}, err
		}
	}
	s.mu.Lock()
	now := time.Now().UTC()
	var candidates []string
	for id, e := range s.entries {
		if s.decayer.ShouldArchive(e, now, threshold) {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)
	s.mu.Unlock()

	report := CompactReport{Candidates: candidates}
	if !apply {
		return report, nil
	}

	if len(candidates) > 0 {
		s.mu.Lock()
		_, err := s.removeLocked(candidates, "compact", fmt.Sprintf("decay<%f", threshold))
		s.mu.Unlock()
		if err != nil {
			return report, err
		}
		report.Archived = candidates
	}

	s.mu.Lock()
	err := s.flushLocked()
	if err == nil {
		var splitKeys []shard.Key
		splitKeys, err = s.shards.SplitOversized()
		for _, k := range splitKeys {
			report.SplitShards = append(report.SplitShards, k.String())
		}
	}
	s.mu.Unlock()
	if err != nil {
		return report, err
	}
	return report, nil
}

// Consolidate runs the consolidation engine's report and, when
// auto_merge_near_duplicates is set (or apply is explicitly requested),
// applies the proposed near-duplicate merges.
func (s *System) Consolidate(apply bool) (consolidate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := consolidate.Run(s.entries)
	if !apply && !s.cfg.AutoMergeNearDuplicates {
		return report, nil
	}

	for _, dup := range report.Duplicates {
		keep, ok1 := s.entries[dup.KeepID]
		merge, ok2 := s.entries[dup.MergeID]
		if !ok1 || !ok2 {
			continue
		}
		consolidate.ApplyMerge(keep, merge)
		k := shard.KeyOf(keep)
		list, err := s.shards.EnsureLoaded(k)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		s.shards.MarkDirty(k, list)

		s.idx.RemoveEntry(merge)
		delete(s.entries, merge.ID)
		mk := shard.KeyOf(merge)
		mlist, err := s.shards.EnsureLoaded(mk)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		s.shards.MarkDirty(mk, removeByID(mlist, merge.ID))
	}
	if len(report.Duplicates) > 0 {
		s.cache.Clear()
	}
	return report, nil
}

// WALFlush explicitly flushes pending WAL records to shards and indexes.
func (s *System) WALFlush() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.wal.ReadAll()
	if err != nil {
		return 0, err
	}
	if err := s.flushLocked(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// WALInspect reports pending record count, size, and a content sample.
func (s *System) WALInspect() (wal.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Inspect()
}

// RebuildIndexes reconstructs all three indexes from the authoritative
// entry map and persists them.
func (s *System) RebuildIndexes() (int, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	terms, tags, dates := s.idx.Rebuild(s.entries)
	if err := s.idx.Save(); err != nil {
		return 0, 0, 0, err
	}
	return terms, tags, dates, nil
}

// BulkItem is one entry to ingest via BulkIngest.
type BulkItem struct {
	Content    string
	Source     string
	Category   string
	MemoryType string
	Tags       []string
}

// BulkIngest disables incremental index mutation for the duration of the
// call, appends every item to the WAL, then flushes the WAL and rebuilds
// indexes once. It warns (via the returned warning string) if the
// resulting active set exceeds bulk_active_cap.
func (s *System) BulkIngest(items []BulkItem) (stored, duplicates, dropped int, warning string, err error) {
	s.mu.Lock()
	s.bulkMode = true
	now := time.Now().UTC()
	for _, it := range items {
		status, _, ingestErr := s.ingestLocked(it.Content, it.Source, it.Category, it.MemoryType, it.Tags, now)
		if ingestErr != nil {
			s.bulkMode = false
			s.mu.Unlock()
			return stored, duplicates, dropped, "", ingestErr
		}
		switch status {
		case StatusStored:
			stored++
		case StatusDuplicate:
			duplicates++
		case StatusDropped:
			dropped++
		}
	}
	s.bulkMode = false
	s.idx.Rebuild(s.entries)
	if err := s.idx.Save(); err != nil {
		s.mu.Unlock()
		return stored, duplicates, dropped, "", err
	}
	if err := s.flushLocked(); err != nil {
		s.mu.Unlock()
		return stored, duplicates, dropped, "", err
	}
	activeCount := len(s.entries)
	s.mu.Unlock()

	if activeCount > s.cfg.BulkActiveCap {
		warning = fmt.Sprintf("active set size %d exceeds bulk_active_cap %d", activeCount, s.cfg.BulkActiveCap)
	}
	return stored, duplicates, dropped, warning, nil
}

// EntryCount returns the number of live entries.
func (s *System) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Get returns the entry for id, if present.
func (s *System) Get(id string) (*model.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Namespace opens (creating if needed) an isolated nested System under
// namespaces/<name>, with its own shards, indexes, and WAL, and records
// it in the parent's namespace_manifest.json.
func (s *System) Namespace(name string) (*System, error) {
	nsDir := filepath.Join(s.cfg.Workspace, "namespaces", name)
	nsCfg := *s.cfg
	nsCfg.Workspace = nsDir
	ns, err := Open(&nsCfg, s.embedder)
	if err != nil {
		return nil, err
	}
	if err := s.recordNamespace(name); err != nil {
		return nil, err
	}
	return ns, nil
}

func (s *System) manifestPath() string {
	return filepath.Join(s.cfg.Workspace, "namespace_manifest.json")
}

func (s *System) recordNamespace(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	if data, err := os.ReadFile(s.manifestPath()); err == nil {
		json.Unmarshal(data, &names)
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	names = append(names, name)
	sort.Strings(names)
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return errs.Wrap(err, errs.CodeIOFailure, "marshal namespace manifest")
	}
	return os.WriteFile(s.manifestPath(), data, 0o644)
}

// Namespaces lists the recorded namespace names.
func (s *System) Namespaces() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeIOFailure, "read namespace manifest")
	}
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, errs.Wrap(err, errs.CodeStoreCorrupt, "decode namespace manifest")
	}
	return names, nil
}
