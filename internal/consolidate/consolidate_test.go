package consolidate

import (
	"testing"
	"time"

	"github.com/foundryforge/agentmem/internal/model"
)

func entryWith(content, category string, importance, confidence float64) *model.Entry {
	e := model.New(content, "test", category, "fact", time.Now())
	e.Importance = importance
	e.Confidence = confidence
	return e
}

func TestRunFindsNearDuplicate(t *testing.T) {
	a := entryWith("the deployment pipeline uses github actions for continuous integration", "engineering", 0.5, 0.5)
	b := entryWith("the deployment pipeline uses github actions for continuous integration builds", "engineering", 0.9, 0.9)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b}

	report := Run(entries)
	if len(report.Duplicates) != 1 {
		t.Fatalf("expected 1 duplicate, got %d: %+v", len(report.Duplicates), report.Duplicates)
	}
	dup := report.Duplicates[0]
	if dup.KeepID != b.ID {
		t.Errorf("expected higher-score entry %q to be kept, got %q", b.ID, dup.KeepID)
	}
	if dup.MergeID != a.ID {
		t.Errorf("expected lower-score entry %q to be merged, got %q", a.ID, dup.MergeID)
	}
	if dup.Jaccard < NearDupThreshold {
		t.Errorf("expected jaccard >= %v, got %v", NearDupThreshold, dup.Jaccard)
	}
}

func TestRunNoDuplicateBelowThreshold(t *testing.T) {
	a := entryWith("we use postgres for the primary database", "engineering", 0.5, 0.5)
	b := entryWith("the frontend is built with react and typescript", "engineering", 0.5, 0.5)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b}

	report := Run(entries)
	if len(report.Duplicates) != 0 {
		t.Errorf("expected no duplicates, got %+v", report.Duplicates)
	}
}

func TestRunClustersSameCategory(t *testing.T) {
	a := entryWith("prefer tabs over spaces in python files", "preferences", 0.5, 0.5)
	b := entryWith("prefer tabs over spaces in golang files", "preferences", 0.5, 0.5)
	c := entryWith("the office coffee machine is broken again", "facilities", 0.5, 0.5)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b, c.ID: c}

	report := Run(entries)
	if len(report.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d: %+v", len(report.Clusters), report.Clusters)
	}
	cl := report.Clusters[0]
	if cl.Category != "preferences" {
		t.Errorf("expected cluster category 'preferences', got %q", cl.Category)
	}
	if len(cl.IDs) != 2 {
		t.Errorf("expected 2 members in cluster, got %d", len(cl.IDs))
	}
}

func TestRunClustersDoNotCrossCategory(t *testing.T) {
	a := entryWith("deploy on friday afternoons only with team approval", "process", 0.5, 0.5)
	b := entryWith("deploy on friday afternoons only with manager approval", "policy", 0.5, 0.5)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b}

	report := Run(entries)
	if len(report.Clusters) != 0 {
		t.Errorf("expected no cross-category clusters, got %+v", report.Clusters)
	}
}

func TestRunFlagsContradiction(t *testing.T) {
	a := entryWith("the team should deploy on fridays with proper review", "process", 0.5, 0.5)
	b := entryWith("the team should never deploy on fridays without review", "process", 0.5, 0.5)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b}

	report := Run(entries)
	if len(report.Contradictions) != 1 {
		t.Fatalf("expected 1 contradiction, got %d: %+v", len(report.Contradictions), report.Contradictions)
	}
}

func TestRunNoContradictionWithoutNegationAsymmetry(t *testing.T) {
	a := entryWith("the team should deploy on fridays with proper review", "process", 0.5, 0.5)
	b := entryWith("the team should deploy on fridays with careful review", "process", 0.5, 0.5)
	entries := map[string]*model.Entry{a.ID: a, b.ID: b}

	report := Run(entries)
	if len(report.Contradictions) != 0 {
		t.Errorf("expected no contradictions, got %+v", report.Contradictions)
	}
}

func TestApplyMergeUnionsTagsAndKeepsHigherAccessCount(t *testing.T) {
	keep := entryWith("keep entry content", "general", 0.5, 0.5)
	keep.Tags["a"] = struct{}{}
	keep.AccessCount = 2

	merge := entryWith("merge entry content", "general", 0.5, 0.5)
	merge.Tags["b"] = struct{}{}
	merge.AccessCount = 9

	ApplyMerge(keep, merge)

	if _, ok := keep.Tags["a"]; !ok {
		t.Error("expected keep to retain its own tag")
	}
	if _, ok := keep.Tags["b"]; !ok {
		t.Error("expected keep to absorb merge's tag")
	}
	if keep.AccessCount != 9 {
		t.Errorf("expected access count to take the max (9), got %d", keep.AccessCount)
	}
}
