// Package consolidate implements offline near-duplicate detection,
// category-scoped clustering, and rule-based contradiction flagging.
package consolidate

import (
	"sort"

	"github.com/foundryforge/agentmem/internal/index"
	"github.com/foundryforge/agentmem/internal/model"
)

// NearDupThreshold is the Jaccard similarity at or above which two entries
// are proposed as a near-duplicate merge.
const NearDupThreshold = 0.85

// ClusterThreshold is the Jaccard similarity at or above which two
// same-category entries are linked in the same cluster.
const ClusterThreshold = 0.4

// SharedTokenThreshold is the minimum number of significant tokens two
// entries must share before a contradiction is considered.
const SharedTokenThreshold = 2

var negationTokens = map[string]struct{}{
	"not": {}, "never": {}, "no": {}, "without": {},
}

// Duplicate is a proposed near-duplicate merge.
type Duplicate struct {
	KeepID  string  `json:"keep_id"`
	MergeID string  `json:"merge_id"`
	Jaccard float64 `json:"jaccard"`
}

// Cluster is a connected component of similar entries within one category.
type Cluster struct {
	Category string   `json:"category"`
	IDs      []string `json:"ids"`
}

// Contradiction flags two entries that share significant tokens but
// disagree via a negation token in exactly one of them.
type Contradiction struct {
	IDA string `json:"id_a"`
	IDB string `json:"id_b"`
}

// Report is the output of a consolidation pass; it never mutates the
// store, per the "propose, don't apply" contract.
type Report struct {
	Duplicates     []Duplicate     `json:"duplicates"`
	Clusters       []Cluster       `json:"clusters"`
	Contradictions []Contradiction `json:"contradictions"`
	Errors         []string        `json:"errors,omitempty"`
}

// Run scans entries for duplicates, clusters, and contradictions.
func Run(entries map[string]*model.Entry) Report {
	ids := sortedIDs(entries)
	words := make(map[string]map[string]struct{}, len(ids))
	for _, id := range ids {
		words[id] = index.SignificantWords(entries[id].Content)
	}

	var report Report

	for i := 0; i < len(ids); i++ {
		for k := i + 1; k < len(ids); k++ {
			a, b := ids[i], ids[k]
			sim := jaccard(words[a], words[b])
			if sim >= NearDupThreshold {
				report.Duplicates = append(report.Duplicates, buildDuplicate(entries[a], entries[b], sim))
			}
		}
	}

	report.Clusters = clusters(entries, ids, words)
	report.Contradictions = contradictions(entries, ids, words)

	return report
}

func buildDuplicate(a, b *model.Entry, j float64) Duplicate {
	keep, merge := a, b
	if score(b) > score(a) {
		keep, merge = b, a
	}
	return Duplicate{KeepID: keep.ID, MergeID: merge.ID, Jaccard: round3(j)}
}

// score is importance*confidence, used to pick the surviving entry in a
// proposed merge.
func score(e *model.Entry) float64 { return e.Importance * e.Confidence }

// ApplyMerge folds merge's tags and access count into keep, updating keep in
// place. Callers are responsible for removing merge from the store
// afterward; this call performs no I/O.
func ApplyMerge(keep, merge *model.Entry) {
	for t := range merge.Tags {
		keep.Tags[t] = struct{}{}
	}
	if merge.AccessCount > keep.AccessCount {
		keep.AccessCount = merge.AccessCount
	}
}

func clusters(entries map[string]*model.Entry, ids []string, words map[string]map[string]struct{}) []Cluster {
	parent := map[string]string{}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, id := range ids {
		parent[id] = id
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if entries[a].Category != entries[b].Category {
				continue
			}
			if jaccard(words[a], words[b]) >= ClusterThreshold {
				union(a, b)
			}
		}
	}
	groups := map[string][]string{}
	for _, id := range ids {
		root := find(id)
		groups[root] = append(groups[root], id)
	}
	var out []Cluster
	roots := make([]string, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	for _, r := range roots {
		members := groups[r]
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, Cluster{Category: entries[r].Category, IDs: members})
	}
	return out
}

func contradictions(entries map[string]*model.Entry, ids []string, words map[string]map[string]struct{}) []Contradiction {
	var out []Contradiction
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if sharedCount(words[a], words[b]) < SharedTokenThreshold {
				continue
			}
			negA := hasNegation(entries[a].Content)
			negB := hasNegation(entries[b].Content)
			if negA != negB {
				out = append(out, Contradiction{IDA: a, IDB: b})
			}
		}
	}
	return out
}

func hasNegation(content string) bool {
	for w := range index.AllWords(content) {
		if _, ok := negationTokens[w]; ok {
			return true
		}
	}
	return false
}

func sharedCount(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}

func sortedIDs(entries map[string]*model.Entry) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
