// Package search implements BM25 lexical ranking, multiplicative boosts,
// decay weighting, and optional hybrid semantic blending over the
// inverted indexes.
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/foundryforge/agentmem/internal/decay"
	"github.com/foundryforge/agentmem/internal/embedding"
	"github.com/foundryforge/agentmem/internal/index"
	"github.com/foundryforge/agentmem/internal/model"
)

// BM25 constants per the composite scoring formula.
const (
	K1 = 1.5
	B  = 0.75
)

const (
	phraseBoost = 1.5
	tagBoost    = 1.2
	sourceBoost = 1.1
)

const (
	hybridBM25Weight   = 0.4
	hybridCosineWeight = 0.6
)

// Query describes a search request.
type Query struct {
	Text          string
	Category      string
	MemoryType    string
	MinConfidence float64
	Limit         int
	Explain       bool
}

// ComponentScores is the per-result score breakdown returned when
// Query.Explain is set.
type ComponentScores struct {
	MatchedTerms []string `json:"matched_terms"`
	Lexical      float64  `json:"lexical"`
	Boosts       float64  `json:"boosts"`
	Decay        float64  `json:"decay"`
	Reinforce    float64  `json:"reinforce"`
	Importance   float64  `json:"importance"`
	Raw          float64  `json:"raw"`
	Relevance    float64  `json:"relevance"`
}

// Result is one ranked search hit.
type Result struct {
	Entry     *model.Entry
	Relevance float64
	Explain   *ComponentScores
}

// Engine scores and ranks entries against the text/tag/date indexes.
type Engine struct {
	Index    *index.Manager
	Decay    *decay.Engine
	Embedder embedding.Embedder
}

// New returns an Engine over idx, scoring with dec's decay formula. embedder
// may be nil to disable the hybrid blend.
func New(idx *index.Manager, dec *decay.Engine, embedder embedding.Embedder) *Engine {
	return &Engine{Index: idx, Decay: dec, Embedder: embedder}
}

// docEmbeddings maps entry id to its cached ingest-time embedding vector.
type docEmbeddings map[string]embedding.Vector

// Search scores every candidate entry against q and returns ranked,
// normalized results. entries is the authoritative id->entry map; embeds
// holds cached document embeddings for the hybrid blend (may be nil).
func (eng *Engine) Search(ctx context.Context, entries map[string]*model.Entry, q Query, now time.Time, embeds docEmbeddings) ([]Result, error) {
	terms := index.Tokenize(q.Text)
	candidateIDs := eng.candidateSet(terms)
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	N := len(entries)
	avgdl := eng.averageDocLen(entries)

	var queryVec embedding.Vector
	if eng.Embedder != nil && ctx != nil {
		v, err := eng.Embedder.Embed(ctx, q.Text)
		if err == nil {
			queryVec = v
		}
	}

	scored := make([]Result, 0, len(candidateIDs))
	for id := range candidateIDs {
		entry, ok := entries[id]
		if !ok {
			continue
		}
		if !passesFilters(entry, q) {
			continue
		}

		lex, matched := eng.bm25(entry, terms, N, avgdl)
		boosts := boostFactor(entry, terms)
		decayScore := eng.Decay.Score(entry, now)
		reinforce := decay.Reinforce(entry.AccessCount)
		raw := lex * boosts * decayScore * reinforce * entry.Importance

		bm25Component := raw
		if eng.Embedder != nil {
			if vec, ok := embeds[id]; ok && queryVec != nil {
				cos := embedding.CosineSimilarity(queryVec, vec)
				raw = hybridBM25Weight*raw + hybridCosineWeight*cos
				bm25Component = raw
			}
		}

		res := Result{Entry: entry, Relevance: raw}
		if q.Explain {
			res.Explain = &ComponentScores{
				MatchedTerms: matched,
				Lexical:      lex,
				Boosts:       boosts,
				Decay:        decayScore,
				Reinforce:    reinforce,
				Importance:   entry.Importance,
				Raw:          bm25Component,
			}
		}
		scored = append(scored, res)
	}

	scored = normalize(scored)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}
		if !scored[i].Entry.Created.Equal(scored[j].Entry.Created) {
			return scored[i].Entry.Created.After(scored[j].Entry.Created)
		}
		return scored[i].Entry.ID < scored[j].Entry.ID
	})

	if q.Limit > 0 && len(scored) > q.Limit {
		scored = scored[:q.Limit]
	}
	return scored, nil
}

func (eng *Engine) candidateSet(terms []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range terms {
		for id := range eng.Index.PostingList(t) {
			out[id] = struct{}{}
		}
	}
	return out
}

func passesFilters(e *model.Entry, q Query) bool {
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.MemoryType != "" && e.MemoryType != q.MemoryType {
		return false
	}
	if q.MinConfidence > 0 && e.Confidence < q.MinConfidence {
		return false
	}
	return true
}

func (eng *Engine) averageDocLen(entries map[string]*model.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	total := 0
	for _, e := range entries {
		total += len(index.Tokenize(e.Content))
	}
	return float64(total) / float64(len(entries))
}

// bm25 computes score_lex(d,Q) and returns the matched term list.
func (eng *Engine) bm25(e *model.Entry, terms []string, N int, avgdl float64) (float64, []string) {
	docTerms := index.Tokenize(e.Content)
	docLen := float64(len(docTerms))

	var score float64
	var matched []string
	seen := map[string]struct{}{}
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		tf := 0
		if postings := eng.Index.PostingList(t); postings != nil {
			tf = postings[e.ID]
		}
		if tf == 0 {
			continue
		}
		matched = append(matched, t)

		df := eng.Index.DocFreq(t)
		idf := idfOf(N, df)
		numerator := float64(tf) * (K1 + 1)
		denominator := float64(tf) + K1*(1-B+B*docLen/nonZero(avgdl))
		score += idf * (numerator / denominator)
	}
	return score, matched
}

func idfOf(N, df int) float64 {
	return math.Log((float64(N-df)+0.5)/(float64(df)+0.5) + 1)
}

func nonZero(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

func boostFactor(e *model.Entry, terms []string) float64 {
	factor := 1.0
	if len(terms) > 1 && containsPhrase(e.Content, terms) {
		factor *= phraseBoost
	}
	for _, t := range terms {
		if e.HasTag(t) {
			factor *= tagBoost
			break
		}
	}
	lowerSource := strings.ToLower(e.Source)
	for _, t := range terms {
		if strings.Contains(lowerSource, t) {
			factor *= sourceBoost
			break
		}
	}
	return factor
}

// containsPhrase reports whether terms appear as a consecutive token
// sequence in content.
func containsPhrase(content string, terms []string) bool {
	contentTokens := index.TokenizeKeepAll(content)
	if len(terms) == 0 || len(contentTokens) < len(terms) {
		return false
	}
	for i := 0; i+len(terms) <= len(contentTokens); i++ {
		match := true
		for j, t := range terms {
			if contentTokens[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// normalize scales every result's Relevance into [0,1] by its own raw-score
// max, dropping any result whose raw score is zero or negative before the
// divide (a strongly negative cosine in the hybrid blend can otherwise push
// raw below zero, which would survive as a negative Relevance). If every
// candidate's raw score is zero or negative, the result list is empty.
func normalize(results []Result) []Result {
	max := 0.0
	for _, r := range results {
		if r.Relevance > max {
			max = r.Relevance
		}
	}
	if max <= 0 {
		return nil
	}
	out := results[:0]
	for _, r := range results {
		if r.Relevance <= 0 {
			continue
		}
		r.Relevance /= max
		if r.Explain != nil {
			r.Explain.Relevance = r.Relevance
		}
		out = append(out, r)
	}
	return out
}
